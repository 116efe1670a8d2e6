package books

// RequestStatus is the lifecycle state of a BookRequest.
//
//	PENDING -> APPROVED | DENIED
//	APPROVED -> PUBLISHED
//	DENIED, PUBLISHED -> terminal
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusApproved  RequestStatus = "APPROVED"
	StatusDenied    RequestStatus = "DENIED"
	StatusPublished RequestStatus = "PUBLISHED"
)

var validTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusApproved, StatusDenied},
	StatusApproved:  {StatusPublished},
	StatusDenied:    {},
	StatusPublished: {},
}

// AllowedTransitions returns the target states reachable from s. Unknown
// states have no transitions.
func AllowedTransitions(s RequestStatus) []RequestStatus {
	return validTransitions[s]
}

func CanTransition(from, to RequestStatus) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func IsValidStatus(s RequestStatus) bool {
	_, ok := validTransitions[s]
	return ok
}
