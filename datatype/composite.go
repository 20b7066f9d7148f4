package datatype

// FixedPairType is a PairType whose halves are both fixed-size.
type FixedPairType[L, R any] struct {
	left  FixedSizeDataType[L]
	right FixedSizeDataType[R]
}

// NewFixedPair returns a fixed-size pair codec.
func NewFixedPair[L, R any](left FixedSizeDataType[L], right FixedSizeDataType[R]) FixedPairType[L, R] {
	return FixedPairType[L, R]{left: left, right: right}
}

func (p FixedPairType[L, R]) FixedSize() int { return p.left.FixedSize() + p.right.FixedSize() }

func (p FixedPairType[L, R]) Size(Pair[L, R]) int { return p.FixedSize() }

func (p FixedPairType[L, R]) SizeAt(buf []byte, off int) (int, error) {
	if err := checkRange("read", buf, off, p.FixedSize()); err != nil {
		return 0, err
	}
	return p.FixedSize(), nil
}

func (p FixedPairType[L, R]) Write(buf []byte, off int, v Pair[L, R]) error {
	if err := checkRange("write", buf, off, p.FixedSize()); err != nil {
		return err
	}
	if err := p.left.Write(buf, off, v.Left); err != nil {
		return err
	}
	return p.right.Write(buf, off+p.left.FixedSize(), v.Right)
}

func (p FixedPairType[L, R]) Read(buf []byte, off int) (Pair[L, R], error) {
	var out Pair[L, R]
	if err := checkRange("read", buf, off, p.FixedSize()); err != nil {
		return out, err
	}
	var err error
	if out.Left, err = p.left.Read(buf, off); err != nil {
		return out, err
	}
	out.Right, err = p.right.Read(buf, off+p.left.FixedSize())
	return out, err
}

// NullableType stores a presence byte followed by a fixed-size payload. The
// payload bytes are zeroed when the value is absent, so the size never changes
// and a nullable value can live in a fixed-size list.
type NullableType[T any] struct {
	elem FixedSizeDataType[T]
}

// NewNullable returns a nullable codec.
func NewNullable[T any](elem FixedSizeDataType[T]) NullableType[T] {
	return NullableType[T]{elem: elem}
}

func (n NullableType[T]) FixedSize() int { return 1 + n.elem.FixedSize() }

func (n NullableType[T]) Size(Null[T]) int { return n.FixedSize() }

func (n NullableType[T]) SizeAt(buf []byte, off int) (int, error) {
	if err := checkRange("read", buf, off, n.FixedSize()); err != nil {
		return 0, err
	}
	return n.FixedSize(), nil
}

func (n NullableType[T]) Write(buf []byte, off int, v Null[T]) error {
	if err := checkRange("write", buf, off, n.FixedSize()); err != nil {
		return err
	}
	if !v.Valid {
		clear(buf[off : off+n.FixedSize()])
		return nil
	}
	buf[off] = 1
	return n.elem.Write(buf, off+1, v.Value)
}

func (n NullableType[T]) Read(buf []byte, off int) (Null[T], error) {
	if err := checkRange("read", buf, off, n.FixedSize()); err != nil {
		return Null[T]{}, err
	}
	if buf[off] == 0 {
		return Null[T]{}, nil
	}
	v, err := n.elem.Read(buf, off+1)
	if err != nil {
		return Null[T]{}, err
	}
	return Some(v), nil
}
