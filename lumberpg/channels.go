package lumberpg

// PostgreSQL NOTIFY channel names used for inter-process communication.
const (
	// ChannelEventLogged is notified after a batch of events is committed.
	// The payload is the number of rows in the batch.
	ChannelEventLogged = "lumber_event_logged"
)
