// Package device models the USB side of an emulated peripheral: descriptor
// tables, setup packets, transfers and the scheduler that completes them.
//
// It does not talk to hardware. A host-side virtual USB layer hands each
// guest request to an [Emulated] device as a [Transfer]; the device answers
// by scheduling response bytes and a completion delay on a [Scheduler].
//
// # Architecture
//
//   - [Descriptors] holds the fixed device, configuration, interface and
//     endpoint descriptors reported during enumeration
//   - [StandardRequestHandler] answers chapter 9 requests from those tables
//   - [Transfer] carries one request, tagged by [TransferKind]
//   - [Queue] is the FIFO that bridges control requests to interrupt polls
//   - [TransferThread] is the reference [Scheduler]
//
// # Transfer Kinds
//
// All four USB transfer kinds can be submitted:
//
//   - Control: setup packet plus data stage; portal commands travel here
//   - Interrupt: periodic polls that collect queued responses
//   - Bulk and Isochronous: accepted for completeness; the emulated
//     portals reject them
//
// # Scheduling
//
// [TransferThread.Schedule] stamps a transfer with ExpectedTime = now +
// delay and the thread never completes it earlier. Completion order is
// ExpectedTime, ties broken by submission order. The clock is injectable:
// [SystemClock] for live use, [ManualClock] for replays and tests, where
// [TransferThread.Drain] steps the clock from one deadline to the next.
//
// # Example
//
//	thread := device.NewTransferThread(device.WithClock(device.NewManualClock(start)))
//	var setup device.SetupPacket
//	device.SetReportSetup(&setup, 2)
//	_ = portal.Submit(device.NewControlTransfer(setup, []byte{'A', 0x01}))
//	poll := device.NewInterruptTransfer(0x81, make([]byte, 32))
//	_ = portal.Submit(poll)
//	thread.Drain(ctx)
//
// Serialization follows MarshalTo(buf) and Parse*(data, out) so callers own
// every buffer.
package device
