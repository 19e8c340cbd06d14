package event_bus

import "time"

const (
	TrainingRecordInserted EventType = "training.record.inserted"
	TrainingRecordDeleted  EventType = "training.record.deleted"
	PlanningDispatched     EventType = "planning.dispatched"
	PlanningFailed         EventType = "planning.failed"
	QueueMessageDropped    EventType = "queue.message.dropped"
)

type TrainingRecordChanged struct {
	Id     string
	UserId string
}

type PlanningDispatchedData struct {
	HostId      string
	EventId     string
	RequestId   string
	WindowStart time.Time
	WindowEnd   time.Time
	// Path is the feature resolution path taken for the primary event.
	Path                string
	Events              int
	MeetingAssistEvents int
	AttendeeFailures    int
	Duration            time.Duration
}

type PlanningFailedData struct {
	HostId  string
	EventId string
	Err     error
}

type MessageDroppedData struct {
	MessageId string
	Reason    string
	// Deliveries is how many times the message was handed to a consumer.
	Deliveries int64
}
