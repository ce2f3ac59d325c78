package bind_group

// BufferWrite describes a single write into the backing buffer of a BindGroup slot at a given
// byte offset.
type BufferWrite struct {
	Slot   uint32
	Offset uint64
	Data   []byte
}
