package mailbox

// Range is an inclusive 1-indexed span of mailbox sequence numbers.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Len() int {
	return int(r.End-r.Start) + 1
}

// PageRange maps a 1-indexed page of the newest-first view onto the
// oldest-first sequence numbers of a mailbox holding total messages.
// It reports false when the page is past the end of the mailbox.
func PageRange(total, page, size int) (Range, bool) {
	if total < 1 || page < 1 || size < 1 {
		return Range{}, false
	}
	pages := total / size
	if total%size != 0 {
		pages++
	}
	// compared before multiplying so huge pages cannot overflow
	if page-1 >= pages {
		return Range{}, false
	}
	end := total - (page-1)*size
	start := end - size + 1
	if start < 1 {
		start = 1
	}
	return Range{Start: uint32(start), End: uint32(end)}, true
}
