package abstract

import (
	"context"
	"fmt"
	"strings"
)

// Seq concatenates sources into one sequence. Each source may carry one
// Info per item, which is passed down as Args.Params when the item is
// evaluated.
type Seq struct {
	name    string
	sources []Sequence
	infos   [][]Info
}

// NewSeq concatenates sources.
func NewSeq(name string, sources ...Sequence) (*Seq, error) {
	s := &Seq{name: name}
	for _, src := range sources {
		if err := s.Concat(src, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Concat appends data with optional per-item info. A DictSeq must have a
// single active key. A Seq is flattened into its sources.
func (s *Seq) Concat(data Sequence, info []Info) error {
	n, err := requireLen(data, "seq concat")
	if err != nil {
		return err
	}
	if info != nil && len(info) != n {
		return fmt.Errorf("seq concat: info has %d entries for %d items: %w", len(info), n, ErrLenMismatch)
	}
	switch t := data.(type) {
	case *DictSeq:
		if len(t.active) != 1 {
			return fmt.Errorf("seq concat: %w: dict_seq needs one active key, has %d", ErrInvalidConfig, len(t.active))
		}
		s.sources = append(s.sources, t.Clone())
		s.infos = append(s.infos, info)
	case *Seq:
		off := 0
		for k, src := range t.sources {
			m := src.Len()
			srcInfo := t.infos[k]
			if info != nil {
				srcInfo = make([]Info, m)
				for i := range srcInfo {
					srcInfo[i] = infoAt(t.infos[k], i).Merge(info[off+i])
				}
			}
			if d, ok := src.(*DictSeq); ok {
				src = d.Clone()
			}
			s.sources = append(s.sources, src)
			s.infos = append(s.infos, srcInfo)
			off += m
		}
	default:
		s.sources = append(s.sources, data)
		s.infos = append(s.infos, info)
	}
	return nil
}

// Len returns the summed length of the sources.
func (s *Seq) Len() int {
	n := 0
	for _, src := range s.sources {
		n += src.Len()
	}
	return n
}

func (s *Seq) locate(index int) (int, int, error) {
	i, err := Normalize(index, s.Len())
	if err != nil {
		return 0, 0, err
	}
	for k, src := range s.sources {
		if m := src.Len(); i >= m {
			i -= m
			continue
		}
		return k, i, nil
	}
	return 0, 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
}

// Get evaluates item index of the source holding it.
func (s *Seq) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	k, i, err := s.locate(index)
	if err != nil {
		return nil, nil, err
	}
	if s.infos[k] != nil {
		args.Params = s.infos[k][i].Merge(args.Params)
	}
	return s.sources[k].Get(ctx, i, args)
}

// Set assigns item index in the source holding it.
func (s *Seq) Set(index int, value any) error {
	k, i, err := s.locate(index)
	if err != nil {
		return err
	}
	st, ok := s.sources[k].(Setter)
	if !ok {
		return fmt.Errorf("seq: %w on %T", ErrNotAssignable, s.sources[k])
	}
	return st.Set(i, value)
}

// Sources returns the concatenated sources.
func (s *Seq) Sources() []Sequence { return s.sources }

// Key projects key out of every source.
func (s *Seq) Key(key string) (Sequence, error) { return NewKey(s, key) }

// Summary describes the sequence.
func (s *Seq) Summary() map[string]any {
	return map[string]any{"nr_examples": s.Len(), "name": s.name}
}

// Clone copies the sequence. Nested DictSeq sources are cloned, other
// sources are shared.
func (s *Seq) Clone() *Seq {
	c := &Seq{name: s.name, sources: make([]Sequence, len(s.sources)), infos: make([][]Info, len(s.infos))}
	for k, src := range s.sources {
		if d, ok := src.(*DictSeq); ok {
			src = d.Clone()
		}
		c.sources[k] = src
	}
	copy(c.infos, s.infos)
	return c
}

func (s *Seq) String() string {
	var b strings.Builder
	b.WriteString("seq containing:")
	for _, src := range s.sources {
		fmt.Fprintf(&b, "\n[ \t%s\t]", describe(src))
	}
	return b.String()
}

func infoAt(infos []Info, i int) Info {
	if infos == nil {
		return Info{}
	}
	return infos[i]
}
