package format

import "unsafe"

// Header word access.
//
// Every chunk is laid out as:
//
//	Offset      Size        Description
//	0x00        HeaderSize  True size of the chunk in bytes (header included).
//	HeaderSize  ...         Payload handed to the caller.
//
// The memory behind these pointers is mapped from the OS and is never part of
// the Go heap, so the garbage collector neither scans nor moves it.

// HeaderOf returns the address of the header word for the payload pointer p.
func HeaderOf(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(p, -HeaderSize)
}

// PayloadOf returns the payload pointer for the chunk that starts at base.
func PayloadOf(base unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(base, HeaderSize)
}

// ReadWord reads the machine word stored at p.
func ReadWord(p unsafe.Pointer) uintptr {
	return *(*uintptr)(p)
}

// PutWord stores v at p.
func PutWord(p unsafe.Pointer, v uintptr) {
	*(*uintptr)(p) = v
}

// ReadHeader returns the raw header word of the chunk whose payload is p.
func ReadHeader(p unsafe.Pointer) uintptr {
	return ReadWord(HeaderOf(p))
}

// PutHeader stamps the header word of the chunk whose payload is p.
func PutHeader(p unsafe.Pointer, v uintptr) {
	PutWord(HeaderOf(p), v)
}

// Bytes views n bytes starting at p as a byte slice.
func Bytes(p unsafe.Pointer, n int) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}
