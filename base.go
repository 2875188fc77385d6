package seqstore

import "fmt"

// baseSnapshot is the ordered storage state captured at session open. It is
// immutable for the life of the session except by being swapped out after a
// successful commit. lookup may perform storage I/O when the snapshot is
// lazy.
type baseSnapshot interface {
	headers() []string
	contains(header string) bool
	lookup(header string) (string, error)
	close() error
}

// openBase materializes the base snapshot for path. Codecs with random
// access keep only the header index in memory; everything else is decoded
// wholesale.
func openBase(path string, codec Codec) (baseSnapshot, error) {
	rac, ok := codec.(RandomAccessCodec)
	if !ok {
		records, err := codec.Decode(path)
		if err != nil {
			return nil, err
		}

		return newEagerBase(records)
	}

	reader, err := rac.OpenReader(path)
	if err != nil {
		return nil, err
	}

	base, err := newLazyBase(reader)
	if err != nil {
		_ = reader.Close()

		return nil, err
	}

	return base, nil
}

// eagerBase holds the fully decoded storage in memory.
type eagerBase struct {
	order []string
	seqs  map[string]string
}

func newEagerBase(records []Record) (*eagerBase, error) {
	base := &eagerBase{seqs: make(map[string]string, len(records))}

	for _, rec := range records {
		if _, dup := base.seqs[rec.Header]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHeader, rec.Header)
		}

		base.order = append(base.order, rec.Header)
		base.seqs[rec.Header] = rec.Sequence
	}

	return base, nil
}

func (b *eagerBase) headers() []string { return b.order }

func (b *eagerBase) contains(header string) bool {
	_, ok := b.seqs[header]
	return ok
}

func (b *eagerBase) lookup(header string) (string, error) {
	seq, ok := b.seqs[header]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, header)
	}

	return seq, nil
}

func (b *eagerBase) close() error { return nil }

// lazyBase keeps only the ordered header index and reads sequences through
// the codec's Reader on demand.
type lazyBase struct {
	reader Reader
	order  []string
	index  map[string]struct{}
}

func newLazyBase(reader Reader) (*lazyBase, error) {
	order := reader.Headers()
	index := make(map[string]struct{}, len(order))

	for _, header := range order {
		if _, dup := index[header]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHeader, header)
		}

		index[header] = struct{}{}
	}

	return &lazyBase{reader: reader, order: order, index: index}, nil
}

func (b *lazyBase) headers() []string { return b.order }

func (b *lazyBase) contains(header string) bool {
	_, ok := b.index[header]
	return ok
}

func (b *lazyBase) lookup(header string) (string, error) {
	if _, ok := b.index[header]; !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, header)
	}

	return b.reader.Read(header)
}

func (b *lazyBase) close() error { return b.reader.Close() }
