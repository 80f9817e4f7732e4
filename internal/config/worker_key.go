package config

type WorkerKeyStruct struct {
	PersistRecordingsQueue    string
	PersistAttemptEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistRecordingsQueue:    "persist_recordings_queue",
	PersistAttemptEventsQueue: "persist_attempt_events_queue",
}
