package audioengine

import (
	"fmt"
	"io"
)

// maxEmptyReads bounds how many consecutive (0, nil) reads a misbehaving
// decoder may return before the sampler gives up.
const maxEmptyReads = 100

// Block is a channel-major slice of samples: Block[c][i] is frame i of channel c.
type Block [][]float64

// Frames returns the number of frames in the block.
func (b Block) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// BlockSampler cuts a Source into consecutive blocks of a fixed frame length.
// The last block keeps whatever is left and may be shorter. A block returned
// by Next is only valid until the following call.
type BlockSampler struct {
	src  Source
	buf  [][]float64
	view [][]float64
	out  Block
	done bool
}

// NewBlockSampler prepares a sampler reading blockFrames frames per block.
func NewBlockSampler(src Source, blockFrames int) (*BlockSampler, error) {
	if blockFrames <= 0 {
		return nil, fmt.Errorf("%w: block length %d frames", ErrInvalidConfiguration, blockFrames)
	}
	channels := src.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrInvalidConfiguration, channels)
	}
	s := &BlockSampler{
		src:  src,
		buf:  make([][]float64, channels),
		view: make([][]float64, channels),
		out:  make(Block, channels),
	}
	for c := range s.buf {
		s.buf[c] = make([]float64, blockFrames)
	}
	return s, nil
}

// Next returns the next block, or io.EOF once the source is exhausted.
func (s *BlockSampler) Next() (Block, error) {
	if s.done {
		return nil, io.EOF
	}

	blockFrames := len(s.buf[0])
	filled, empty := 0, 0
	for filled < blockFrames {
		for c := range s.buf {
			s.view[c] = s.buf[c][filled:]
		}
		n, err := s.src.Read(s.view)
		filled += n
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nil, io.ErrNoProgress
			}
			continue
		}
		empty = 0
	}

	if filled == 0 {
		return nil, io.EOF
	}
	for c := range s.buf {
		s.out[c] = s.buf[c][:filled]
	}
	return s.out, nil
}
