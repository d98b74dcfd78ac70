// Package msgs provides the bridge protocol and all message schemas.
package msgs

// The bridge protocol is communicated between a motor bridge and remote
// tools, carrying board commands and telemetry as protobuf messages.
//
// Producer: bridge (events, replies)
// Consumer: remote tools (commands)
