package book

// AvailableCopies derives the loanable copies of a book from its total copies
// and the live count of its unreturned loans. The result is clamped to
// [0, copies] so an over-booked title never reports negative stock.
func AvailableCopies(copies, outstanding int) int {
	if copies < 0 {
		copies = 0
	}
	if outstanding < 0 {
		outstanding = 0
	}
	if available := copies - outstanding; available > 0 {
		return available
	}
	return 0
}
