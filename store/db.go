package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fusionswap/escrowd/escrow"
	"go.etcd.io/bbolt"
)

const (
	dbName           = "escrow.db"
	dbFilePermission = 0600
)

var (
	walletsBucket = []byte("wallets")
	escrowsBucket = []byte("escrows")
	configBucket  = []byte("config")
	metaBucket    = []byte("meta")

	adminConfigKey = []byte("admin-config")
	dbVersionKey   = []byte("version")
)

// migration mutates the bucket layout of a prior database version into the
// next one, the same signature channeldb's own migration type uses.
type migration func(tx *bbolt.Tx) error

// schemaVersions lists every migration needed to bring an older database
// up to the current layout, in ascending order. There is only the base
// version today; a real schema change appends here, it never rewrites an
// entry already shipped.
var schemaVersions = []migration{
	nil, // version 0: the layout created by createBuckets, no migration.
}

// DB is the bbolt-backed implementation of escrow.Store. It adapts
// channeldb's Open/bucket/migration pattern to this package's object
// kinds: one top-level bucket per kind, keyed by the object's 32-byte ID,
// with TLV-encoded values.
type DB struct {
	*bbolt.DB
	dbPath string
}

// Open opens (creating if necessary) the escrow database rooted at
// dbPath, applying any pending schema migrations before returning.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return nil, fmt.Errorf("unable to create db directory: %w", err)
	}

	path := filepath.Join(dbPath, dbName)
	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: bdb, dbPath: dbPath}
	log.Infof("opening escrow database at %s", path)

	if err := db.createBuckets(); err != nil {
		bdb.Close()
		return nil, err
	}
	if err := db.syncVersion(); err != nil {
		bdb.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) createBuckets() error {
	return d.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{walletsBucket, escrowsBucket, configBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// syncVersion applies any migration whose index exceeds the database's
// currently recorded schema version, within a single atomic transaction.
func (d *DB) syncVersion() error {
	return d.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)

		current := 0
		if v := meta.Get(dbVersionKey); v != nil {
			current = int(v[0])
		}

		latest := len(schemaVersions) - 1
		if current >= latest {
			return nil
		}

		for i := current + 1; i <= latest; i++ {
			if schemaVersions[i] == nil {
				continue
			}
			log.Infof("applying schema migration %d", i)
			if err := schemaVersions[i](tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", i, err)
			}
		}

		return meta.Put(dbVersionKey, []byte{byte(latest)})
	})
}

// GetWallet implements escrow.Store.
func (d *DB) GetWallet(id escrow.ObjectID) (*escrow.Wallet, error) {
	var w *escrow.Wallet
	err := d.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(walletsBucket).Get(id[:])
		if v == nil {
			return nil
		}
		decoded, err := decodeWallet(v)
		if err != nil {
			return err
		}
		w = decoded
		return nil
	})
	return w, err
}

// PutWallet implements escrow.Store.
func (d *DB) PutWallet(w *escrow.Wallet) error {
	enc, err := encodeWallet(w)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(walletsBucket).Put(w.ID[:], enc)
	})
}

// DeleteWallet implements escrow.Store.
func (d *DB) DeleteWallet(id escrow.ObjectID) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(walletsBucket).Delete(id[:])
	})
}

// GetEscrow implements escrow.Store.
func (d *DB) GetEscrow(id escrow.ObjectID) (*escrow.Escrow, error) {
	var e *escrow.Escrow
	err := d.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(escrowsBucket).Get(id[:])
		if v == nil {
			return nil
		}
		decoded, err := decodeEscrow(v)
		if err != nil {
			return err
		}
		e = decoded
		return nil
	})
	return e, err
}

// PutEscrow implements escrow.Store.
func (d *DB) PutEscrow(e *escrow.Escrow) error {
	enc, err := encodeEscrow(e)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(escrowsBucket).Put(e.ID[:], enc)
	})
}

// DeleteEscrow implements escrow.Store.
func (d *DB) DeleteEscrow(id escrow.ObjectID) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(escrowsBucket).Delete(id[:])
	})
}

// GetAdminConfig implements escrow.Store.
func (d *DB) GetAdminConfig() (*escrow.AdminConfig, error) {
	var cfg *escrow.AdminConfig
	err := d.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(configBucket).Get(adminConfigKey)
		if v == nil {
			return nil
		}
		decoded, err := decodeAdminConfig(v)
		if err != nil {
			return err
		}
		cfg = decoded
		return nil
	})
	return cfg, err
}

// PutAdminConfig implements escrow.Store.
func (d *DB) PutAdminConfig(cfg *escrow.AdminConfig) error {
	enc, err := encodeAdminConfig(cfg)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(configBucket).Put(adminConfigKey, enc)
	})
}

// Ping performs a read-only transaction against the meta bucket, for the
// healthmon package's liveness probe.
func (d *DB) Ping() error {
	return d.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(metaBucket) == nil {
			return fmt.Errorf("meta bucket missing")
		}
		return nil
	})
}

// ListActiveObjectIDs returns the ObjectID of every Wallet and Escrow
// currently in an Active-like state, for the rescuescan package's
// periodic sweep. It copies nothing but the IDs: the scanner re-fetches
// full state through the Ledger before deciding anything, the same
// "list cheaply, reload before acting" split channeldb's own scans use.
func (d *DB) ListActiveObjectIDs() ([]escrow.ObjectID, error) {
	var ids []escrow.ObjectID

	err := d.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(walletsBucket).ForEach(func(k, v []byte) error {
			w, err := decodeWallet(v)
			if err != nil {
				return err
			}
			if w.IsActive {
				ids = append(ids, w.ID)
			}
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(escrowsBucket).ForEach(func(k, v []byte) error {
			e, err := decodeEscrow(v)
			if err != nil {
				return err
			}
			if e.Status == escrow.StatusActive {
				ids = append(ids, e.ID)
			}
			return nil
		})
	})

	return ids, err
}
