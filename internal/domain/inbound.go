package domain

// InboundMessage is the provider-independent shape of a fetched mailbox
// message, produced by the mailbox adapter. DateHeader carries the raw Date
// header value; the ingestion pipeline owns parsing it.
type InboundMessage struct {
	ExternalID string
	Sender     string
	Subject    string
	DateHeader string
	Body       string
}
