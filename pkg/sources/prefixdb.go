package sources

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotIPv4 = errors.New("only IPv4 is supported")

// Key namespaces. Range keys are the namespace byte, the network address
// (4 bytes) and the prefix length (1 byte).
const (
	rangeSpace byte = 'r'
	seenSpace  byte = 's'
)

// PrefixDB is a badger store holding two tables: IPv4 ranges answering
// longest prefix match lookups, and the set of prefixes ever announced.
type PrefixDB struct {
	db    *badger.DB
	cache sync.Map
}

// OpenPrefixDB opens or creates the store at path. An empty path keeps
// everything in memory.
func OpenPrefixDB(path string) (*PrefixDB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open prefix db: %w", err)
	}
	return &PrefixDB{db: db}, nil
}

func (p *PrefixDB) Close() error {
	return p.db.Close()
}

func rangeKey(prefix netip.Prefix) ([]byte, error) {
	if !prefix.Addr().Is4() {
		return nil, ErrNotIPv4
	}
	prefix = prefix.Masked()
	key := make([]byte, 6)
	key[0] = rangeSpace
	a := prefix.Addr().As4()
	copy(key[1:], a[:])
	key[5] = byte(prefix.Bits())
	return key, nil
}

func seenKey(prefix netip.Prefix) []byte {
	return append([]byte{seenSpace}, prefix.Masked().String()...)
}

func (p *PrefixDB) Insert(prefix netip.Prefix, value []byte) error {
	key, err := rangeKey(prefix)
	if err != nil {
		return err
	}
	defer p.cache.Clear()
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// BatchInsert writes many ranges at once. Non IPv4 prefixes are skipped.
func (p *PrefixDB) BatchInsert(entries map[netip.Prefix][]byte) error {
	wb := p.db.NewWriteBatch()
	defer wb.Cancel()
	defer p.cache.Clear()

	for prefix, v := range entries {
		key, err := rangeKey(prefix)
		if err != nil {
			continue
		}
		if err := wb.Set(key, v); err != nil {
			return err
		}
	}
	return wb.Flush()
}

type lookupResult struct {
	val  []byte
	bits int
}

// Lookup returns the value of the longest range containing addr and that
// range's prefix length. A nil value means no range matched.
func (p *PrefixDB) Lookup(addr netip.Addr) (val []byte, bits int, err error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return nil, 0, ErrNotIPv4
	}
	a := addr.As4()
	target := binary.BigEndian.Uint32(a[:])
	if v, ok := p.cache.Load(target); ok {
		if v == nil {
			return nil, 0, nil
		}
		res := v.(lookupResult)
		return res.val, res.bits, nil
	}

	err = p.db.View(func(txn *badger.Txn) error {
		key := make([]byte, 6)
		key[0] = rangeSpace
		for m := 32; m >= 0; m-- {
			var mask uint32
			if m > 0 {
				mask = uint32(0xFFFFFFFF) << (32 - m)
			}
			binary.BigEndian.PutUint32(key[1:], target&mask)
			key[5] = byte(m)

			item, getErr := txn.Get(key)
			if getErr == nil {
				val, getErr = item.ValueCopy(nil)
				bits = m
				return getErr
			}
			if !errors.Is(getErr, badger.ErrKeyNotFound) {
				return getErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if val == nil {
		p.cache.Store(target, nil)
	} else {
		p.cache.Store(target, lookupResult{val: val, bits: bits})
	}
	return val, bits, nil
}

// Seen reports whether prefix was ever marked.
func (p *PrefixDB) Seen(prefix netip.Prefix) (bool, error) {
	err := p.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(seenKey(prefix))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (p *PrefixDB) MarkSeen(prefix netip.Prefix) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seenKey(prefix), []byte{1})
	})
}

// ForEachRange calls fn for every stored range in key order.
func (p *PrefixDB) ForEachRange(fn func(prefix netip.Prefix, v []byte) error) error {
	return p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{rangeSpace}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.Key()
			if len(k) != 6 {
				continue
			}
			prefix := netip.PrefixFrom(netip.AddrFrom4([4]byte(k[1:5])), int(k[5]))
			err := item.Value(func(v []byte) error {
				return fn(prefix, v)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
