package handlers

// HelloResponse is the plain text greeting behind the rate limiter.
type HelloResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// LimitRequest addresses the counter of one client key.
type LimitRequest struct {
	Key string `doc:"The client key, usually an IP address" example:"203.0.113.7" path:"key"`
}

// LimitResponse describes the current usage of a client key.
type LimitResponse struct {
	Body struct {
		Key           string `doc:"The client key"                           example:"203.0.113.7" json:"key"`
		Current       int64  `doc:"Requests counted in the current window"   example:"3"           json:"current"`
		Max           int64  `doc:"Requests admitted per window"             example:"10"          json:"max"`
		WindowSeconds int64  `doc:"Window length in seconds"                 example:"60"          json:"windowSeconds"`
		Remaining     int64  `doc:"Requests left before the key is rejected" example:"7"           json:"remaining"`
	}
}
