package decoder

import "github.com/sarchlab/rv64xlate/guest"

// Frequently-referenced guest-state offsets, named for readability at
// call sites that don't otherwise touch the guest package.
var (
	pcOffset      = int64(guest.OffPC)
	nraddrOffset  = int64(guest.OffNRADDR)
	x5Offset      = guest.RegOffset(5)
	x13Offset     = guest.RegOffset(13)
	llscSizeOff   = int64(guest.OffLLSCSize)
	llscAddrOff   = int64(guest.OffLLSCAddr)
	llscDataOff   = int64(guest.OffLLSCData)
)

func regOffset(r uint8) int64 { return guest.RegOffset(r) }
