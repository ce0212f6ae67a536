package session

// FlashBag keeps transient values for exactly one following cycle. Values
// written to Current in one cycle are readable from Last after the next
// decode, and are gone after the decode after that.
type FlashBag struct {
	current *Bag
	last    *Bag
}

// NewFlashBag returns a FlashBag with empty current and last bags.
func NewFlashBag() *FlashBag {
	return &FlashBag{current: NewBag(), last: NewBag()}
}

// Current returns the bag written during this cycle. Only this bag is
// persisted.
func (f *FlashBag) Current() *Bag {
	return f.current
}

// Last returns the bag that was current when the session was last saved.
// It is read-only by convention.
func (f *FlashBag) Last() *Bag {
	return f.last
}

// flashFromStored builds the FlashBag seen after a decode: the persisted
// bag moves to last and current starts empty.
func flashFromStored(stored *Bag) *FlashBag {
	if stored == nil {
		stored = NewBag()
	}
	return &FlashBag{current: NewBag(), last: stored}
}
