// Package hashlist resolves resource identifiers to resource paths using a
// versioned hash list archive.
//
// Every resource in the game's containers is addressed by a 64-bit
// identifier derived from its path (see [HashPath]). A hash list records the
// known paths together with their resource type, an optional hint and the
// games the resource was seen in, so that tools can show names instead of
// hexadecimal identifiers.
//
// Archives are brotli-compressed Smile documents as distributed by the
// community hash list, or packed archives (zstd or lz4 compressed CBOR)
// written by this package. The format is detected automatically.
//
// # Quick Start
//
// Load a list and resolve an identifier:
//
//	data, err := os.ReadFile("hash_list.hmla")
//	if err != nil {
//	    return err
//	}
//	list, err := hashlist.Load(data)
//	if err != nil {
//	    return err
//	}
//	id, _ := hashlist.ParseID("00123456789abcde")
//	fmt.Println(list.ToPath(id))
//
// Go the other way:
//
//	id, known, err := list.ReverseLookup("[assembly:/_pro/scenes/frontend/mainmenu.entity].pc_entitytype")
//
// # Reloading
//
// A [Store] publishes one list at a time and swaps in new versions without
// blocking readers:
//
//	store := hashlist.NewStore(hashlist.WithLogger(logger))
//	if _, _, err := store.Refresh(data); err != nil {
//	    return err
//	}
//	entry, ok, err := store.Lookup(id)
package hashlist
