package player

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/jfreymuth/vorbis"
	"github.com/jj11hh/opus"
)

const (
	opusSampleRate = 48000
	// oggPreroll is decoded and dropped before a seek target so the codec
	// has converged (80 ms at 48 kHz).
	oggPreroll = 3840

	oggFlagContinued = 0x01
)

var (
	errInvalidOggMagic     = errors.New("ogg: invalid capture pattern")
	errInvalidOggVersion   = errors.New("ogg: unsupported version")
	errUnknownOggCodec     = errors.New("ogg: unknown codec (not Opus or Vorbis)")
	errInvalidOpusHead     = errors.New("opus: invalid OpusHead")
	errUnsupportedOpus     = errors.New("opus: unsupported version")
	errInvalidVorbisHeader = errors.New("vorbis: invalid identification header")
	errVorbisNotReady      = errors.New("vorbis: headers incomplete")
	errOggNoHeaders        = errors.New("ogg: stream ends before audio")
	errOggNoChannels       = errors.New("ogg: stream has no channels")
)

// oggPageHeader is the fixed part of an Ogg page plus its segment table.
type oggPageHeader struct {
	Flags        byte
	GranulePos   int64
	SerialNumber uint32
	SequenceNum  uint32
	SegmentTable []uint8
}

func (h *oggPageHeader) bodySize() int64 {
	var n int64
	for _, s := range h.SegmentTable {
		n += int64(s)
	}
	return n
}

func parseOggPageHeader(r io.Reader) (*oggPageHeader, error) {
	var buf [27]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	if string(buf[0:4]) != "OggS" {
		return nil, errInvalidOggMagic
	}
	if buf[4] != 0 {
		return nil, errInvalidOggVersion
	}
	hdr := &oggPageHeader{
		Flags:        buf[5],
		GranulePos:   int64(binary.LittleEndian.Uint64(buf[6:14])), //nolint:gosec // -1 marks pages without a finished packet
		SerialNumber: binary.LittleEndian.Uint32(buf[14:18]),
		SequenceNum:  binary.LittleEndian.Uint32(buf[18:22]),
	}
	if n := buf[26]; n > 0 {
		hdr.SegmentTable = make([]uint8, n)
		if _, err := io.ReadFull(r, hdr.SegmentTable); err != nil {
			return nil, err
		}
	}
	return hdr, nil
}

// readOggPageBody splits a page body into packets. A trailing run of
// 255-byte segments is a packet that continues on the next page; it is
// returned as partial.
func readOggPageBody(r io.Reader, hdr *oggPageHeader) (packets [][]byte, partial []byte, err error) {
	body := make([]byte, hdr.bodySize())
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}
	var cur []byte
	off := 0
	for _, seg := range hdr.SegmentTable {
		cur = append(cur, body[off:off+int(seg)]...)
		off += int(seg)
		if seg < 255 {
			packets = append(packets, cur)
			cur = nil
		}
	}
	if cur != nil {
		partial = cur
	}
	return packets, partial, nil
}

// oggPage holds the packets completed on one page.
type oggPage struct {
	GranulePos int64
	Packets    [][]byte
}

// oggReader walks the pages of an in-memory Ogg stream and reassembles
// packets that span pages.
type oggReader struct {
	r           io.ReadSeeker
	preSkip     int64
	dataStart   int64
	lastGranule int64
	partial     []byte
	// dropContinued discards the tail of a packet whose head was skipped
	// by a seek.
	dropContinued bool
}

func newOggReader(r io.ReadSeeker) *oggReader {
	return &oggReader{r: r}
}

func (o *oggReader) readPage() (*oggPage, error) {
	hdr, err := parseOggPageHeader(o.r)
	if err != nil {
		return nil, err
	}
	packets, partial, err := readOggPageBody(o.r, hdr)
	if err != nil {
		return nil, err
	}
	continued := hdr.Flags&oggFlagContinued != 0
	switch {
	case continued && o.dropContinued:
		if len(packets) > 0 {
			packets = packets[1:]
		} else {
			partial = nil
		}
	case continued && o.partial != nil:
		if len(packets) > 0 {
			packets[0] = append(o.partial, packets[0]...)
		} else if partial != nil {
			partial = append(o.partial, partial...)
		}
	}
	o.dropContinued = continued && o.dropContinued && len(packets) == 0 && partial == nil
	o.partial = partial
	return &oggPage{GranulePos: hdr.GranulePos, Packets: packets}, nil
}

// markDataStart records the current offset as the first audio page.
func (o *oggReader) markDataStart() error {
	off, err := o.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	o.dataStart = off
	return nil
}

// scanLastGranule finds the final granule position by walking page headers.
func (o *oggReader) scanLastGranule() error {
	if _, err := o.r.Seek(o.dataStart, io.SeekStart); err != nil {
		return err
	}
	for {
		hdr, err := parseOggPageHeader(o.r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return err
		}
		if hdr.GranulePos >= 0 {
			o.lastGranule = hdr.GranulePos
		}
		if _, err := o.r.Seek(hdr.bodySize(), io.SeekCurrent); err != nil {
			return err
		}
	}
	return o.rewind()
}

// rewind positions the reader on the first audio page.
func (o *oggReader) rewind() error {
	o.partial = nil
	o.dropContinued = false
	_, err := o.r.Seek(o.dataStart, io.SeekStart)
	return err
}

// duration is the playable length in samples, pre-skip excluded.
func (o *oggReader) duration() int64 {
	return max(o.lastGranule-o.preSkip, 0)
}

// seekToGranule positions the reader after the last page ending at or
// before target and returns the granule decoding resumes from.
func (o *oggReader) seekToGranule(target int64) (int64, error) {
	if _, err := o.r.Seek(o.dataStart, io.SeekStart); err != nil {
		return 0, err
	}
	landing, start := o.dataStart, int64(0)
	off := o.dataStart
	for {
		hdr, err := parseOggPageHeader(o.r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		off += 27 + int64(len(hdr.SegmentTable)) + hdr.bodySize()
		if hdr.GranulePos > target {
			break
		}
		if hdr.GranulePos >= 0 {
			landing, start = off, hdr.GranulePos
		}
		if _, err := o.r.Seek(off, io.SeekStart); err != nil {
			return 0, err
		}
	}
	if _, err := o.r.Seek(landing, io.SeekStart); err != nil {
		return 0, err
	}
	o.partial = nil
	o.dropContinued = landing != o.dataStart
	return start, nil
}

// oggCodec decodes the packets of one logical stream.
type oggCodec interface {
	SampleRate() int
	Channels() int
	PreSkip() int
	// AddHeaderPacket feeds a header packet; it reports true once the
	// codec can decode audio.
	AddHeaderPacket(packet []byte) (complete bool, err error)
	// Decode writes interleaved samples into pcm and returns the number of
	// samples per channel.
	Decode(packet []byte, pcm []float32) (int, error)
	Reset()
}

func detectOggCodec(first []byte) (oggCodec, error) {
	if len(first) >= 8 && string(first[:8]) == "OpusHead" {
		return newOpusCodec(first)
	}
	if len(first) >= 7 && first[0] == 0x01 && string(first[1:7]) == "vorbis" {
		return newVorbisCodec(first)
	}
	return nil, errUnknownOggCodec
}

type opusCodec struct {
	decoder  *opus.Decoder
	channels int
	preSkip  int
}

func newOpusCodec(head []byte) (*opusCodec, error) {
	if len(head) < 19 {
		return nil, errInvalidOpusHead
	}
	if head[8] != 1 {
		return nil, errUnsupportedOpus
	}
	channels := int(head[9])
	decoder, err := opus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return nil, err
	}
	return &opusCodec{
		decoder:  decoder,
		channels: channels,
		preSkip:  int(binary.LittleEndian.Uint16(head[10:12])),
	}, nil
}

// SampleRate is always 48 kHz; the rate in OpusHead is informational.
func (c *opusCodec) SampleRate() int { return opusSampleRate }
func (c *opusCodec) Channels() int   { return c.channels }
func (c *opusCodec) PreSkip() int    { return c.preSkip }

// AddHeaderPacket skips OpusTags; OpusHead already configured the decoder.
func (c *opusCodec) AddHeaderPacket(packet []byte) (bool, error) {
	return len(packet) >= 8 && string(packet[:8]) == "OpusTags", nil
}

func (c *opusCodec) Decode(packet []byte, pcm []float32) (int, error) {
	return c.decoder.DecodeFloat32(packet, pcm)
}

// Reset is a no-op: the pre-roll after a seek resynchronizes the decoder.
func (c *opusCodec) Reset() {}

type vorbisCodec struct {
	decoder    *vorbis.Decoder
	channels   int
	sampleRate int
	headers    [][]byte
}

func newVorbisCodec(ident []byte) (*vorbisCodec, error) {
	if len(ident) < 16 || binary.LittleEndian.Uint32(ident[7:11]) != 0 {
		return nil, errInvalidVorbisHeader
	}
	return &vorbisCodec{
		channels:   int(ident[11]),
		sampleRate: int(binary.LittleEndian.Uint32(ident[12:16])),
		headers:    [][]byte{append([]byte(nil), ident...)},
	}, nil
}

func (c *vorbisCodec) SampleRate() int { return c.sampleRate }
func (c *vorbisCodec) Channels() int   { return c.channels }
func (c *vorbisCodec) PreSkip() int    { return 0 }

// AddHeaderPacket collects the comment and setup headers.
func (c *vorbisCodec) AddHeaderPacket(packet []byte) (bool, error) {
	if c.decoder != nil {
		return true, nil
	}
	c.headers = append(c.headers, append([]byte(nil), packet...))
	if len(c.headers) < 3 {
		return false, nil
	}
	decoder := &vorbis.Decoder{}
	for _, h := range c.headers {
		if err := decoder.ReadHeader(h); err != nil {
			return false, err
		}
	}
	c.decoder = decoder
	c.headers = nil
	return true, nil
}

func (c *vorbisCodec) Decode(packet []byte, pcm []float32) (int, error) {
	if c.decoder == nil {
		return 0, errVorbisNotReady
	}
	samples, err := c.decoder.Decode(packet)
	if err != nil {
		return 0, err
	}
	n := copy(pcm, samples)
	return n / c.channels, nil
}

func (c *vorbisCodec) Reset() {
	if c.decoder != nil {
		c.decoder.Clear()
	}
}

// decodeOgg opens an Ogg Opus or Ogg Vorbis payload.
func decodeOgg(rs io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	ogg := newOggReader(rs)

	first, err := ogg.readPage()
	if err != nil {
		return nil, beep.Format{}, err
	}
	if len(first.Packets) == 0 {
		return nil, beep.Format{}, errors.New("ogg: no packets in first page")
	}
	codec, err := detectOggCodec(first.Packets[0])
	if err != nil {
		return nil, beep.Format{}, err
	}
	if codec.Channels() < 1 {
		return nil, beep.Format{}, errOggNoChannels
	}

	ready := false
	for !ready {
		page, err := ogg.readPage()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, beep.Format{}, errOggNoHeaders
		}
		if err != nil {
			return nil, beep.Format{}, err
		}
		for _, pkt := range page.Packets {
			if ready, err = codec.AddHeaderPacket(pkt); err != nil {
				return nil, beep.Format{}, err
			}
			if ready {
				break
			}
		}
	}

	if err := ogg.markDataStart(); err != nil {
		return nil, beep.Format{}, err
	}
	ogg.preSkip = int64(codec.PreSkip())
	if err := ogg.scanLastGranule(); err != nil {
		return nil, beep.Format{}, err
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(codec.SampleRate()),
		NumChannels: min(codec.Channels(), 2),
		Precision:   2,
	}
	d := &oggDecoder{
		ogg:    ogg,
		codec:  codec,
		closer: rs,
		// 5760 is the largest Opus frame; Vorbis blocks stay under 8192.
		pcm:  make([]float32, 8192*codec.Channels()),
		skip: ogg.preSkip,
	}
	d.pcm = d.pcm[:0]
	return d, format, nil
}

// oggDecoder implements beep.StreamSeekCloser over an oggReader.
type oggDecoder struct {
	ogg    *oggReader
	codec  oggCodec
	closer io.Closer

	page      *oggPage
	packetIdx int
	pcm       []float32
	pcmPos    int
	// granule counts decoded samples per channel, pre-skip included.
	granule int64
	// skip is how many decoded samples to drop before output resumes.
	skip int64
	err  error
}

func (d *oggDecoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	ch := d.codec.Channels()

	for n < len(samples) {
		if d.pcmPos < len(d.pcm) {
			l := float64(d.pcm[d.pcmPos])
			r := l
			if ch > 1 {
				r = float64(d.pcm[d.pcmPos+1])
			}
			d.pcmPos += ch
			d.granule++
			if d.skip > 0 {
				d.skip--
				continue
			}
			samples[n][0], samples[n][1] = l, r
			n++
			continue
		}

		if d.page == nil || d.packetIdx >= len(d.page.Packets) {
			page, err := d.ogg.readPage()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					d.err = err
				}
				return n, n > 0
			}
			d.page = page
			d.packetIdx = 0
			continue
		}

		packet := d.page.Packets[d.packetIdx]
		d.packetIdx++
		perChannel, err := d.codec.Decode(packet, d.pcm[:cap(d.pcm)])
		if err != nil {
			// corrupt packets are dropped
			continue
		}
		d.pcm = d.pcm[:perChannel*ch]
		d.pcmPos = 0
	}
	return n, true
}

func (d *oggDecoder) Err() error { return d.err }

func (d *oggDecoder) Len() int { return int(d.ogg.duration()) }

func (d *oggDecoder) Position() int {
	return int(max(d.granule+d.skip-d.ogg.preSkip, 0))
}

func (d *oggDecoder) Seek(p int) error {
	p = max(0, min(p, d.Len()))
	target := int64(p) + d.ogg.preSkip
	start, err := d.ogg.seekToGranule(max(target-oggPreroll, 0))
	if err != nil {
		return err
	}
	d.codec.Reset()
	d.page = nil
	d.packetIdx = 0
	d.pcm = d.pcm[:0]
	d.pcmPos = 0
	d.granule = start
	d.skip = target - start
	d.err = nil
	return nil
}

func (d *oggDecoder) Close() error { return d.closer.Close() }
