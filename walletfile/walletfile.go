// Package walletfile persists the wallet's encrypted seed (spec.md
// section 4.D's "Open") as a single fixed-layout binary file, the way the
// teacher's macaroon/TLS-cert files are written: a magic-prefixed blob
// under 0600 permissions, read whole into memory on open.
package walletfile

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/wallet"
)

const (
	fileName = "wallet.seed"
	magic    = "MWCW"
)

// Path returns the wallet seed file path under dir.
func Path(dir string) string {
	return dir + string(os.PathSeparator) + fileName
}

// Exists reports whether a wallet seed file is already present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Save writes es to dir, creating or truncating wallet.seed with 0600
// permissions.
func Save(dir string, es *wallet.EncryptedSeed) error {
	var buf bytes.Buffer
	buf.WriteString(magic)

	if err := writeChunk(&buf, es.Ciphertext); err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	buf.Write(es.Salt[:])
	buf.Write(es.IV[:])
	buf.Write(es.Pepper[:])

	if err := os.WriteFile(Path(dir), buf.Bytes(), 0600); err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	return nil
}

// Load reads and parses the wallet seed file in dir.
func Load(dir string) (*wallet.EncryptedSeed, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}

	r := bytes.NewReader(data)
	hdr := make([]byte, len(magic))
	if _, err := r.Read(hdr); err != nil || string(hdr) != magic {
		return nil, errkind.New(errkind.Fatal, "walletfile: bad magic in %s", Path(dir))
	}

	ciphertext, err := readChunk(r)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}

	es := &wallet.EncryptedSeed{Ciphertext: ciphertext}
	if _, err := r.Read(es.Salt[:]); err != nil {
		return nil, errkind.New(errkind.Fatal, "walletfile: truncated salt in %s", Path(dir))
	}
	if _, err := r.Read(es.IV[:]); err != nil {
		return nil, errkind.New(errkind.Fatal, "walletfile: truncated iv in %s", Path(dir))
	}
	if _, err := r.Read(es.Pepper[:]); err != nil {
		return nil, errkind.New(errkind.Fatal, "walletfile: truncated pepper in %s", Path(dir))
	}
	return es, nil
}

func writeChunk(buf *bytes.Buffer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
	return nil
}

func readChunk(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
