// Package pdb reads the paginated export.pdb database written by Rekordbox
// onto USB media.
//
// The file is a 24-byte header, a table directory, and fixed-size pages.
// Each table is a linked chain of pages; each page carries a row heap that
// starts at offset 40 and a row index growing backwards from the page end
// in groups of 16 slots, each group guarded by a presence bitmap.
//
// Decoding is tolerant: a row that fails its checks is reported as a
// *RowError and skipped, and a broken page chain ends the table without
// failing the whole file. Only a missing file or a header too small to
// parse is fatal.
//
// Basic usage:
//
//	store, err := pdb.OpenFile("PIONEER/rekordbox/export.pdb", pdb.Options{})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	genres := pdb.DecodeTable(store, pdb.GenreSchema)
//	for _, g := range genres.Records {
//	    fmt.Println(g.ID, g.Name)
//	}
package pdb
