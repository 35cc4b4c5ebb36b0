package types

// PubSubMessage is the payload of a Pub/Sub event via Cloud Event.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ScheduledTrigger is the optional JSON body Cloud Scheduler attaches to a
// scheduled job message. An empty body is valid.
type ScheduledTrigger struct {
	Job         string `json:"job"`
	ScheduledAt string `json:"scheduled_at"`
}
