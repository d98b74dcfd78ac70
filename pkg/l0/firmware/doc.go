// Package firmware implements the board side of the L0 protocol.
//
// Every framed transport (USB, UART) owns a Context: an outbound queue of
// OutboundCapacity packets and a latest-wins stream configuration. The read
// half decodes host packets and runs them through the shared Handler, the
// write half drains the queue, and a StreamTask reports motor state.
//
// All transports share one motor.Bank and one Watchdog. The watchdog is the
// only task allowed to arm motors and disarms them as soon as the host stops
// renewing its deadline.
package firmware
