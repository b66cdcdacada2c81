package zxid

/*
The ZXID has two parts: the epoch and a counter. The zxid is a 64-bit number
where the high order 32-bits hold the epoch and the low order 32-bits hold the
counter. The epoch changes when a new server takes over the stream; within an
epoch the counter simply increments, so every change event carries a unique,
totally ordered id. Consumers can rely on zxids being strictly increasing in
the order events were generated.
*/
type ZXID int64

func New(epoch int32, counter int32) ZXID {
	// Line the epoch and counter up with the high and low 32 bits of the zxid.
	var zxid int64 = 0
	highBits := int64(epoch) << 32
	lowBits := int64(counter)

	zxid |= highBits
	zxid |= lowBits
	return ZXID(zxid)
}

func (z ZXID) Epoch() int32 {
	// The epoch lives in the higher 32 bits of the zxid.
	return int32(z >> 32)
}

func (z ZXID) Counter() int32 {
	// The counter lives in the lower 32 bits of the zxid. Mask off the high
	// bits and take what remains.
	var maskLow32 ZXID = 0xFFFFFFFF
	return int32(z & maskLow32)
}

// Next returns the zxid that follows z within the same epoch.
func (z ZXID) Next() ZXID {
	return New(z.Epoch(), z.Counter()+1)
}
