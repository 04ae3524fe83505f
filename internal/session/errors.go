package session

import "errors"

var (
	// ErrSessionNotFound indicates the session ID matches no stored session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrArtifactNotFound indicates the artifact ID matches no artifact in
	// the addressed session.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrNoCurrentSession indicates no session has been created yet.
	ErrNoCurrentSession = errors.New("no current session")

	// ErrArtifactStreaming indicates a rewrite was attempted on an
	// artifact that its generation task still owns.
	ErrArtifactStreaming = errors.New("artifact still streaming")
)
