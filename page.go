package berrydb

import "github.com/berrydb/berrydb/internal/page"

// PageID identifies a page within a single store. It is meaningless
// without a Store to interpret it against.
type PageID uint64

// InvalidPageID is never a legal page id; page 0 is reserved for a store's
// own header.
const InvalidPageID PageID = PageID(page.InvalidID)

// FetchMode controls whether GetPage reads a page's bytes from the store
// or leaves them uninitialized.
type FetchMode int

const (
	// FetchPageData reads the page's current on-disk contents.
	FetchPageData FetchMode = FetchMode(page.FetchPageData)
	// IgnorePageData skips the read. The caller must mark the page dirty
	// before releasing it, since its contents no longer match whatever
	// (if anything) is on disk. Used when creating a brand-new page.
	IgnorePageData FetchMode = FetchMode(page.IgnorePageData)
)

// Page is a pinned, in-memory copy of one on-disk page, obtained from
// Transaction.GetPage.
type Page struct {
	id  PageID
	buf *page.Buffer
	txn *Transaction
}

// ID returns the page's id.
func (p *Page) ID() PageID { return p.id }

// Data returns the page's contents for reading.
func (p *Page) Data() []byte { return p.buf.Data() }

// MutableData returns the page's contents for writing in place. Callers
// that write through this must also call MarkDirty.
func (p *Page) MutableData() []byte { return p.buf.MutableData() }

// MarkDirty flags the page as holding modifications not yet on disk. This
// goes through the owning transaction rather than the buffer directly, so
// the page also lands on the transaction's log-dirty list (see
// txn.Transaction.MarkPageDirty).
func (p *Page) MarkDirty() { p.txn.inner.MarkPageDirty(p.buf) }

// IsDirty reports whether the page has unpersisted modifications.
func (p *Page) IsDirty() bool { return p.buf.IsDirty() }
