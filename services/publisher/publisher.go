package publisher

// Publisher sends new listings to downstream consumers
type Publisher interface {
	// Publish appends a message to the stream, tagged with the listing source
	Publish(source string, message []byte) error

	// TrimStreams trims the stream to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
