package domain

// Identity is the authenticated participant bound to a connection.
// It is produced by the token verifier at connection setup and never
// changes for the lifetime of the connection.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
