package v4l2

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// reqBuffersReq mirrors struct v4l2_requestbuffers.
type reqBuffersReq struct {
	Count    uint32
	Type     uint32
	Memory   uint32
	reserved [2]uint32
}

// queryBufReq mirrors struct v4l2_buffer for the mmap-memory case: the
// union arm used is the Offset field of m.
type queryBufReq struct {
	Index, Type, Bytesused, Flags, Field uint32
	TimestampSec, TimestampUsec          int64
	Timecode                             [16]byte // struct v4l2_timecode
	SequenceNumber                       uint32
	Memory                               uint32
	Offset                               uint32
	_                                    uint32 // union padding (userptr is 8 bytes on 64-bit)
	Length                               uint32
	reserved                             [2]uint32
}

// mappedBuffer is one mmap'd capture buffer.
type mappedBuffer struct {
	data   []byte
	length uint32
}

// requestBuffers issues VIDIOC_REQBUFS for mmap-memory capture buffers,
// then QUERYBUFs and mmaps each one. At least four buffers are requested
// per the streaming contract.
func requestBuffers(fd int, count int) ([]mappedBuffer, error) {
	if count < 4 {
		count = 4
	}
	req := reqBuffersReq{Count: uint32(count), Type: bufTypeVideoCapture, Memory: memoryMMAP}
	if err := ioctl(fd, vidiocReqBufs, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("REQBUFS: %w", err)
	}
	if req.Count < 1 {
		return nil, fmt.Errorf("driver returned zero buffers")
	}

	buffers := make([]mappedBuffer, req.Count)
	for i := uint32(0); i < req.Count; i++ {
		qb := queryBufReq{Index: i, Type: bufTypeVideoCapture, Memory: memoryMMAP}
		if err := ioctl(fd, vidiocQueryBuf, unsafe.Pointer(&qb)); err != nil {
			return nil, fmt.Errorf("QUERYBUF %d: %w", i, err)
		}
		data, err := unix.Mmap(fd, int64(qb.Offset), int(qb.Length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("mmap buffer %d: %w", i, err)
		}
		buffers[i] = mappedBuffer{data: data, length: qb.Length}
	}
	return buffers, nil
}

func unmapBuffers(buffers []mappedBuffer) {
	for _, b := range buffers {
		if b.data != nil {
			_ = unix.Munmap(b.data)
		}
	}
}

// queueBuffer issues VIDIOC_QBUF for the given buffer index.
func queueBuffer(fd int, index uint32) error {
	qb := queryBufReq{Index: index, Type: bufTypeVideoCapture, Memory: memoryMMAP}
	return ioctl(fd, vidiocQBuf, unsafe.Pointer(&qb))
}

// dequeueBuffer issues VIDIOC_DQBUF and returns the filled buffer's index
// and the number of valid bytes in it.
func dequeueBuffer(fd int) (index uint32, bytesUsed uint32, err error) {
	var qb queryBufReq
	qb.Type = bufTypeVideoCapture
	qb.Memory = memoryMMAP
	if err := ioctl(fd, vidiocDQBuf, unsafe.Pointer(&qb)); err != nil {
		return 0, 0, err
	}
	return qb.Index, qb.Bytesused, nil
}

// streamOn issues VIDIOC_STREAMON for video capture.
func streamOn(fd int) error {
	t := bufTypeVideoCapture
	return ioctl(fd, vidiocStreamOn, unsafe.Pointer(&t))
}

// streamOff issues VIDIOC_STREAMOFF for video capture.
func streamOff(fd int) error {
	t := bufTypeVideoCapture
	return ioctl(fd, vidiocStreamOff, unsafe.Pointer(&t))
}
