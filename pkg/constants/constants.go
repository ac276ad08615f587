// Package constants defines magic numbers and default values shared across the server.
package constants

import "time"

// Connection timeouts and limits
const (
	DefaultConnTimeout = 10 * time.Second
)

// Keep-alive defaults
const (
	DefaultKeepAliveTimeout    = 10 * time.Second
	DefaultKeepAliveMaxReqs    = 100
	DefaultKeepAliveAdvertise  = true
)

// HTTP limits, enforced by pkg/httpcodec's parser.
const (
	MaxContentLength = 1024 * 1024 * 1024 * 1024 // 1TB
	MaxHeaderBytes   = 1 * 1024 * 1024            // 1MB of header section
)

// Buffer limits
const (
	DefaultBodyMemLimit = 4 * 1024 * 1024 // 4MB
)

// Defaults for pkg/config.Config
const (
	DefaultRoot       = "web"
	DefaultPort       = 80
	DefaultTLSPort    = 443
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultTLSProfile = "secure"
)
