package pager

import "errors"

// Error raised (via panic) when a released guard is used again.
// Using a dead guard is a bug in the caller, not a recoverable condition.
var ErrGuardReleased = errors.New("use of released page guard")

// BasicPageGuard owns exactly one pinned page. Dropping the guard unpins the
// page exactly once. Mutable access through the guard marks the page dirty
// right away, while the pin (and for latched guards, the latch) is still
// held, so the dirty flag is never written after the latch is released.
//
// Guards are move-only: ownership is transferred with MoveFrom or the
// Upgrade* methods, never by copying the struct.
type BasicPageGuard struct {
	pager *Pager
	page  *Page
}

// NewPageGuarded allocates a new zeroed page and returns a guard holding it.
// Returns ErrRanOutOfPages when the buffer pool has no frame to spare.
func (pager *Pager) NewPageGuarded() (*BasicPageGuard, error) {
	page, err := pager.GetNewPage()
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{pager: pager, page: page}, nil
}

// FetchPageBasic pins an existing page and returns a guard holding it.
func (pager *Pager) FetchPageBasic(pagenum int64) (*BasicPageGuard, error) {
	page, err := pager.GetPage(pagenum)
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{pager: pager, page: page}, nil
}

// FetchPageRead pins an existing page, read-latches it, and returns a read guard.
// Blocks until the latch is granted.
func (pager *Pager) FetchPageRead(pagenum int64) (*ReadPageGuard, error) {
	page, err := pager.GetPage(pagenum)
	if err != nil {
		return nil, err
	}
	page.RLock()
	return &ReadPageGuard{guard: BasicPageGuard{pager: pager, page: page}}, nil
}

// FetchPageWrite pins an existing page, write-latches it, and returns a write guard.
// Blocks until the latch is granted.
func (pager *Pager) FetchPageWrite(pagenum int64) (*WritePageGuard, error) {
	page, err := pager.GetPage(pagenum)
	if err != nil {
		return nil, err
	}
	page.WLock()
	return &WritePageGuard{guard: BasicPageGuard{pager: pager, page: page}}, nil
}

// PageNum returns the pagenum of the held page, or NoPage after release.
func (guard *BasicPageGuard) PageNum() int64 {
	if guard.page == nil {
		return NoPage
	}
	return guard.page.GetPageNum()
}

// GetData returns the held page's data for reading.
func (guard *BasicPageGuard) GetData() []byte {
	if guard.page == nil {
		panic(ErrGuardReleased)
	}
	return guard.page.GetData()
}

// GetDataMut returns the held page's data for writing. The page is flagged
// dirty immediately so it is written back before eviction.
func (guard *BasicPageGuard) GetDataMut() []byte {
	if guard.page == nil {
		panic(ErrGuardReleased)
	}
	guard.page.SetDirty(true)
	return guard.page.GetData()
}

// Drop unpins the held page. Dropping an empty guard is a no-op, so every
// exit path can call Drop without tracking whether ownership moved away.
func (guard *BasicPageGuard) Drop() {
	if guard.page == nil {
		return
	}
	guard.pager.PutPage(guard.page)
	guard.pager = nil
	guard.page = nil
}

// MoveFrom releases whatever this guard holds and takes ownership of that's
// page, leaving that empty.
func (guard *BasicPageGuard) MoveFrom(that *BasicPageGuard) {
	if guard == that {
		return
	}
	guard.Drop()
	guard.pager, guard.page = that.pager, that.page
	that.pager, that.page = nil, nil
}

// UpgradeRead read-latches the held page and transfers ownership into a
// ReadPageGuard, leaving this guard empty. The pin is carried over, not
// re-acquired.
func (guard *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	if guard.page == nil {
		panic(ErrGuardReleased)
	}
	guard.page.RLock()
	upgraded := &ReadPageGuard{guard: BasicPageGuard{pager: guard.pager, page: guard.page}}
	guard.pager, guard.page = nil, nil
	return upgraded
}

// UpgradeWrite write-latches the held page and transfers ownership into a
// WritePageGuard, leaving this guard empty.
func (guard *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	if guard.page == nil {
		panic(ErrGuardReleased)
	}
	guard.page.WLock()
	upgraded := &WritePageGuard{guard: BasicPageGuard{pager: guard.pager, page: guard.page}}
	guard.pager, guard.page = nil, nil
	return upgraded
}

// ReadPageGuard holds a pinned page plus its read latch. While the guard is
// live the page data must be treated as immutable.
type ReadPageGuard struct {
	guard BasicPageGuard
}

// PageNum returns the pagenum of the held page, or NoPage after release.
func (guard *ReadPageGuard) PageNum() int64 {
	return guard.guard.PageNum()
}

// GetData returns the held page's data for reading.
func (guard *ReadPageGuard) GetData() []byte {
	return guard.guard.GetData()
}

// Drop releases the read latch, then unpins the page. Idempotent.
func (guard *ReadPageGuard) Drop() {
	if guard.guard.page != nil {
		guard.guard.page.RUnlock()
	}
	guard.guard.Drop()
}

// MoveFrom releases whatever this guard holds and takes ownership of that's
// page and latch, leaving that empty.
func (guard *ReadPageGuard) MoveFrom(that *ReadPageGuard) {
	if guard == that {
		return
	}
	guard.Drop()
	guard.guard.MoveFrom(&that.guard)
}

// WritePageGuard holds a pinned page plus its write latch. Only the holder
// may mutate the page contents.
type WritePageGuard struct {
	guard BasicPageGuard
}

// PageNum returns the pagenum of the held page, or NoPage after release.
func (guard *WritePageGuard) PageNum() int64 {
	return guard.guard.PageNum()
}

// GetData returns the held page's data for reading.
func (guard *WritePageGuard) GetData() []byte {
	return guard.guard.GetData()
}

// GetDataMut returns the held page's data for writing, flagging it dirty
// while the write latch is held.
func (guard *WritePageGuard) GetDataMut() []byte {
	return guard.guard.GetDataMut()
}

// Drop releases the write latch, then unpins the page. Idempotent.
func (guard *WritePageGuard) Drop() {
	if guard.guard.page != nil {
		guard.guard.page.WUnlock()
	}
	guard.guard.Drop()
}

// MoveFrom releases whatever this guard holds and takes ownership of that's
// page and latch, leaving that empty.
func (guard *WritePageGuard) MoveFrom(that *WritePageGuard) {
	if guard == that {
		return
	}
	guard.Drop()
	guard.guard.MoveFrom(&that.guard)
}
