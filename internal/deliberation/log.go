package deliberation

import (
	"encoding/json"
	"log"
	"time"
)

// logEvent logs a structured event in JSON format.
func (o *Orchestrator) logEvent(sessionID, eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "deliberation"
	data["event_type"] = eventType
	data["session_id"] = sessionID

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Deliberation] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
