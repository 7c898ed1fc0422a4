package collab

// Logging convention in the `collab` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on
//     normal operation, with the exception of one time (infrequent)
//     lifecycle data that is useful for monitoring
//     this includes:
//     - dropped advisory events and connectivity timeouts
//     - autosave and refetch errors (best-effort operations are logged,
//       never surfaced)
// V(LogLevelTrace):
//     key events for trace debugging
//     this includes:
//     - per-message send/receive with the project id as a filter key

const LogLevelTrace = 2
