package mqtt

// Publisher sends a payload to a broker topic.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}
