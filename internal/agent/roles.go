package agent

import "fmt"

const storyDescription = `You are the stories specialist for a small business social media account.

Your job:
- Read the account's recent posting pattern and engagement data.
- Propose the next short-lived story: behind the scenes clips, polls, Q&A, quick tips or teasers.
- Suggest story sequences that send viewers to the feed.
- Prefer timely, interactive ideas and note anything worth keeping as a highlight.

Be specific. Give creative direction that can be shot today.`

const feedDescription = `You are the feed specialist for a small business social media account.

Your job:
- Read feed performance: which categories, captions and tags earned engagement.
- Propose the next feed post: satisfying videos, educational carousels, promotions or transformations.
- Use the posting rhythm to recommend when it should go out.
- Balance the content mix so no category is overused.

Include caption direction and a tag strategy.`

const coordinatorDescriptionFormat = `You are the content coordinator for a small business social media account.

Your job:
- Make the story and feed recommendations support each other (the story teases the post, the post points back to highlights).
- Balance quick engagement from stories with long term reach from the feed.
- Settle disagreements between the specialists.
- Deliver one concrete plan for the next story and the next feed post.

When the plan is complete, write %q followed by the plan.`

// DefaultDescription returns the built-in role description for role.
func DefaultDescription(role Role) string {
	switch role {
	case RoleStorySpecialist:
		return storyDescription
	case RoleFeedSpecialist:
		return feedDescription
	case RoleCoordinator:
		return CoordinatorDescription(DefaultMarkerPhrase)
	default:
		return ""
	}
}

// CoordinatorDescription returns the coordinator description that instructs it to
// conclude with phrase.
func CoordinatorDescription(phrase string) string {
	return fmt.Sprintf(coordinatorDescriptionFormat, phrase)
}

// DefaultName is the speaker name used for role when none is configured.
func DefaultName(role Role) string {
	if role == RoleCoordinator {
		return "content_coordinator"
	}
	return string(role)
}

// DefaultTeam returns the standard participants (story specialist, feed specialist,
// coordinator) all speaking through gen.
func DefaultTeam(gen Generator) []*Agent {
	return []*Agent{
		New(DefaultName(RoleStorySpecialist), RoleStorySpecialist, "", gen),
		New(DefaultName(RoleFeedSpecialist), RoleFeedSpecialist, "", gen),
		New(DefaultName(RoleCoordinator), RoleCoordinator, "", gen),
	}
}
