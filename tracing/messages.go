package tracing

// Header carries the serialized causal context on inbound and outbound calls.
const Header = "X-Microcosm-Context"

// Log line templates. Arguments are listed in order after each name.
const (
	// NodeRegistered: service, version, address.
	NodeRegistered = "*** node started        (service: %s, version: %s, addr: %s)"
	// NodeDependsOn: formatted dependency list.
	NodeDependsOn = "*** node depends on     (%s)"
	// RequestReceived: request id.
	RequestReceived = "--> request             (id: %s)"
	// DownstreamRequestSent: service, version, address.
	DownstreamRequestSent = "--> downstream request  (service: %s, version: %s, addr: %s)"
	// DownstreamResponseReceived: downstream request id.
	DownstreamResponseReceived = "--> downstream response (id: %s)"
	// ResponseSent: request id.
	ResponseSent = "<-- response            (id: %s)"
)

// Interaction outcomes, as recorded on spans and metrics.
const (
	OutcomeFinished = "finished"
	OutcomeFailed   = "failed"
)

const (
	traceparentKey = "traceparent"
	spanSession    = "microcosm.session"
	eventFailed    = "interaction.failed"
	fieldTag       = "tag"
	fieldRequestID = "request_id"
	endedReason    = "session ended"
)
