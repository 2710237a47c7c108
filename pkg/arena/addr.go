package arena

import "fmt"

// StateAddr locates one state block inside an Arena. The high 32 bits
// hold the chunk number plus one, the low 32 bits the byte offset in
// the chunk. Zero is the null address.
type StateAddr uint64

const NullAddr StateAddr = 0

func makeAddr(chunk, offset int) StateAddr {
	return StateAddr(uint64(chunk+1)<<32 | uint64(uint32(offset)))
}

func (addr StateAddr) IsNull() bool {
	return addr == NullAddr
}

// Next returns the address offset bytes past addr.
func (addr StateAddr) Next(offset int) StateAddr {
	if addr.IsNull() {
		panic("next on null state address")
	}
	return makeAddr(addr.chunk(), addr.offset()+offset)
}

func (addr StateAddr) chunk() int {
	return int(uint64(addr)>>32) - 1
}

func (addr StateAddr) offset() int {
	return int(uint32(addr))
}

func (addr StateAddr) String() string {
	if addr.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%d:%d", addr.chunk(), addr.offset())
}
