package auth

// SessionSubject is the subject carried by every lab session token.
const SessionSubject = "authenticated"

type Strategy interface {
	IssueToken(subject string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}
