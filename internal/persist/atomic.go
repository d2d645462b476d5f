package persist

import (
	"os"
	"path/filepath"

	"github.com/edulab/reporover/internal/apperr"
)

// WriteFileAtomic writes data to a .tmp sibling, fsyncs, and renames it
// over path.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.NewFile("creating "+filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperr.NewFile("creating "+tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperr.NewFile("writing "+tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperr.NewFile("syncing "+tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperr.NewFile("closing "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperr.NewFile("renaming "+tmp, err)
	}
	return nil
}

// swapFile is one target in a paired atomic swap.
type swapFile struct {
	path string
	data []byte

	hadPrevious bool // target existed before the swap
	backedUp    bool // target was renamed to .bak
	renamed     bool // tmp was renamed onto target
}

func (s *swapFile) tmp() string { return s.path + ".tmp" }
func (s *swapFile) bak() string { return s.path + ".bak" }

// swapAll commits every file or none. The ordering guarantees that at any
// crash point each target is recoverable from {new, .bak, previous}.
func swapAll(files []*swapFile) error {
	// 1. Write all temps. Any failure discards the temps already written.
	for i, f := range files {
		if err := writeTmp(f); err != nil {
			for _, g := range files[:i] {
				os.Remove(g.tmp())
			}
			return err
		}
	}

	// 2. Back up existing targets. A failed backup restores the ones
	// already moved and discards all temps.
	for _, f := range files {
		if _, err := os.Stat(f.path); err != nil {
			continue
		}
		f.hadPrevious = true
		if err := os.Rename(f.path, f.bak()); err != nil {
			rollback(files)
			return apperr.NewFile("backing up "+f.path, err)
		}
		f.backedUp = true
	}

	// 3. Move temps onto targets.
	for _, f := range files {
		if err := os.Rename(f.tmp(), f.path); err != nil {
			rollback(files)
			return apperr.NewFile("committing "+f.path, err)
		}
		f.renamed = true
	}

	// 4. Drop the backups.
	for _, f := range files {
		if f.backedUp {
			os.Remove(f.bak())
		}
	}
	return nil
}

// writeTmp writes a swap file's data to its .tmp sibling without renaming
// it into place.
func writeTmp(f *swapFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return apperr.NewFile("creating "+filepath.Dir(f.path), err)
	}
	tmp := f.tmp()
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperr.NewFile("creating "+tmp, err)
	}
	if _, err := out.Write(f.data); err != nil {
		out.Close()
		os.Remove(tmp)
		return apperr.NewFile("writing "+tmp, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return apperr.NewFile("syncing "+tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return apperr.NewFile("closing "+tmp, err)
	}
	return nil
}

// rollback undoes a partially applied swap: targets renamed from temps are
// removed, backups go back to their original place, leftover temps are
// deleted.
func rollback(files []*swapFile) {
	for _, f := range files {
		if f.renamed {
			os.Remove(f.path)
			f.renamed = false
		} else {
			os.Remove(f.tmp())
		}
		if f.backedUp {
			os.Rename(f.bak(), f.path)
			f.backedUp = false
		}
	}
}
