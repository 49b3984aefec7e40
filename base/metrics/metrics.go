package metrics

const (
	SyncCurrentOffsetH = "The offset currently added to the local clock, in seconds"
	SyncCurrentOffsetN = "servertime_sync_current_offset"
	SyncTargetOffsetH  = "The offset the amortization converges to, in seconds"
	SyncTargetOffsetN  = "servertime_sync_target_offset"
	SyncPrecisionH     = "The uncertainty of the exposed clock, in seconds"
	SyncPrecisionN     = "servertime_sync_precision"
	SyncJumpsH         = "The total number of offset changes applied without amortization"
	SyncJumpsN         = "servertime_sync_jumps"
	SyncAmortStepsH    = "The total number of amortization steps applied"
	SyncAmortStepsN    = "servertime_sync_amortization_steps"
	SyncClockJumpsH    = "The total number of unexpected local clock changes detected"
	SyncClockJumpsN    = "servertime_sync_local_clock_jumps"

	SessionsStartedH   = "The total number of synchronization sessions started"
	SessionsStartedN   = "servertime_sessions_started"
	SessionsIgnoredH   = "The total number of synchronization requests ignored"
	SessionsIgnoredN   = "servertime_sessions_ignored"
	SessionsSucceededH = "The total number of synchronization sessions completed successfully"
	SessionsSucceededN = "servertime_sessions_succeeded"
	SessionsFailedH    = "The total number of synchronization sessions that timed out or produced no sample"
	SessionsFailedN    = "servertime_sessions_failed"

	ProbesSentH      = "The total number of time probes sent"
	ProbesSentN      = "servertime_probes_sent"
	ProbesDiscardedH = "The total number of time probes discarded"
	ProbesDiscardedN = "servertime_probes_discarded"

	HTTPServerReqsServedH = "The total number of time requests served via HTTP"
	HTTPServerReqsServedN = "servertime_http_server_reqs_served"

	IPServerPktsReceivedH = "The total number of packets received via IP"
	IPServerPktsReceivedN = "servertime_ip_server_pkts_received"
	IPServerReqsAcceptedH = "The total number of requests accepted via IP"
	IPServerReqsAcceptedN = "servertime_ip_server_reqs_accepted"
	IPServerReqsServedH   = "The total number of requests served via IP"
	IPServerReqsServedN   = "servertime_ip_server_reqs_served"
)
