package utils

import "time"

// Request context keys shared by handlers and flows
const (
	RequestIDKey  = "request_id"
	UserAgentKey  = "user_agent"
	IPAddressKey  = "ip_address"
	EndpointKey   = "endpoint"
	TimeoutKey    = "timeout"
)

// RecentWindow is how far back a record still counts toward the last-24h summary
const RecentWindow = 24 * time.Hour

// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
const CORSMaxAge = 86400
