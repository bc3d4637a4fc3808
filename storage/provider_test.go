/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Mar 25 18:01:12 2018 mstenber
 * Last modified: Mon Mar 26 11:21:46 2018 mstenber
 * Edit time:     109 min
 *
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stvp/assert"

	"github.com/fingon/go-zxtree/acl"
	"github.com/fingon/go-zxtree/blockio"
	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/record"
	"github.com/fingon/go-zxtree/zxerr"
)

func tempRoot(t *testing.T) string {
	dir, err := os.MkdirTemp("", "zxstorage")
	assert.Nil(t, err)
	return dir
}

func assertCategory(t *testing.T, err error, c zxerr.Category) {
	t.Helper()
	if !zxerr.Is(err, c) {
		t.Fatalf("expected %v, got %v", c, err)
	}
}

func TestOwnerAndStranger(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)

	owner := acl.NewIdentity(1)
	p, err := New(Options{Root: root, Identity: owner,
		Config: &DbConfig{OwnerId: 1, GroupId: 10}})
	assert.Nil(t, err)
	assert.Equal(t, p.Config().MaxSectionIndexSize, int64(DefaultMaxSectionIndexSize))
	assert.Equal(t, p.Config().Permission(), acl.Shared)
	assert.Nil(t, p.Close())

	for _, name := range []string{VersionFile, ConfigFile, IndexFile, DataDir} {
		_, err = os.Stat(filepath.Join(root, name))
		assert.Nil(t, err)
	}

	// Owner comes back just fine
	p, err = New(Options{Root: root, Identity: owner})
	assert.Nil(t, err)
	assert.Equal(t, p.Config().OwnerId, int64(1))
	p.Close()

	// Group member too
	p, err = New(Options{Root: root, Identity: acl.NewIdentity(3, 10)})
	assert.Nil(t, err)
	p.Close()

	// Stranger does not
	_, err = New(Options{Root: root, Identity: acl.NewIdentity(2, 99)})
	assertCategory(t, err, zxerr.ErrUnauthorized)
}

func TestVersion(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	who := acl.NewIdentity(0)

	p, err := New(NewOptionsWithSecrets(root, who, "token", "iv"))
	assert.Nil(t, err)
	p.Close()

	b, err := os.ReadFile(filepath.Join(root, VersionFile))
	assert.Nil(t, err)
	// 16 bytes of magic + a full block of padding
	assert.Equal(t, len(b), 32)

	// Same secrets work
	p, err = New(NewOptionsWithSecrets(root, who, "token", "iv"))
	assert.Nil(t, err)
	p.Close()

	// Wrong ones do not
	_, err = New(NewOptionsWithSecrets(root, who, "token2", "iv"))
	assert.True(t, zxerr.Is(err, zxerr.ErrVersionMismatch) || zxerr.Is(err, zxerr.ErrVersionCorruption))

	// Garbage of right size is a mismatch
	assert.Nil(t, os.WriteFile(filepath.Join(root, VersionFile), make([]byte, 16), 0600))
	_, err = New(Options{Root: root, Identity: who})
	assertCategory(t, err, zxerr.ErrVersionMismatch)

	// Wrong size is corruption
	assert.Nil(t, os.WriteFile(filepath.Join(root, VersionFile), []byte("x"), 0600))
	_, err = New(Options{Root: root, Identity: who})
	assertCategory(t, err, zxerr.ErrVersionCorruption)
}

func TestEncryptedConfig(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	who := acl.NewIdentity(0)

	opts := NewOptionsWithSecrets(root, who, "token", "iv")
	opts.Config = &DbConfig{DbName: "secretdb"}
	p, err := New(opts)
	assert.Nil(t, err)
	p.Close()

	b, err := os.ReadFile(filepath.Join(root, ConfigFile))
	assert.Nil(t, err)
	assert.True(t, len(b) > 0 && b[0] != '{')

	p, err = New(NewOptionsWithSecrets(root, who, "token", "iv"))
	assert.Nil(t, err)
	assert.Equal(t, p.Config().DbName, "secretdb")
	p.Config().DbName = "renamed"
	assert.Nil(t, p.SaveConfig())
	p.Close()

	p, err = New(NewOptionsWithSecrets(root, who, "token", "iv"))
	assert.Nil(t, err)
	assert.Equal(t, p.Config().DbName, "renamed")
	p.Close()

	// Broken config is a load failure
	assert.Nil(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte("{"), 0600))
	_, err = New(NewOptionsWithSecrets(root, who, "token", "iv"))
	assertCategory(t, err, zxerr.ErrConfigLoad)
}

func TestReadWriteDelete(t *testing.T) {
	t.Parallel()
	for _, kind := range index.Kinds() {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			root := tempRoot(t)
			defer os.RemoveAll(root)
			opts := Options{Root: root, Identity: acl.NewIdentity(1),
				Config: &DbConfig{OwnerId: 1, IndexKind: kind}}
			p, err := New(opts)
			assert.Nil(t, err)
			defer p.Close()

			_, err = p.Read("a")
			assertCategory(t, err, zxerr.ErrNotFound)
			assertCategory(t, p.Delete("a"), zxerr.ErrNotFound)

			now := time.UnixMilli(time.Now().UnixMilli())
			assert.Nil(t, p.Write("a", record.Text("hello world")))
			assert.Nil(t, p.Write("b/c", record.Number(42)))
			assert.Nil(t, p.Write("d", record.DateTime(now)))
			assert.Nil(t, p.Write("e", record.Text("")))
			n, err := p.Count()
			assert.Nil(t, err)
			assert.Equal(t, n, int64(4))
			assert.Equal(t, len(p.Config().Sections), 4)

			v, err := p.Read("a")
			assert.Nil(t, err)
			s, err := v.Text()
			assert.Nil(t, err)
			assert.Equal(t, s, "hello world")

			v, err = p.Read("b/c")
			assert.Nil(t, err)
			i, err := v.Number()
			assert.Nil(t, err)
			assert.Equal(t, i, int64(42))

			v, err = p.Read("d")
			assert.Nil(t, err)
			tv, err := v.DateTime()
			assert.Nil(t, err)
			assert.True(t, tv.Equal(now))

			// Empty text is still a value
			v, err = p.Read("e")
			assert.Nil(t, err)
			assert.Equal(t, v.Type, record.DataType_TEXT)

			// Overwrite with shorter value keeps the section
			h, err := p.Stat("a")
			assert.Nil(t, err)
			assert.Nil(t, p.Write("a", record.Boolean(true)))
			h2, err := p.Stat("a")
			assert.Nil(t, err)
			assert.Equal(t, h2.TimeCreated, h.TimeCreated)
			assert.Equal(t, h2.Size, int64(1))
			assert.Equal(t, h2.OwnerId, int32(1))
			v, err = p.Read("a")
			assert.Nil(t, err)
			bv, err := v.Boolean()
			assert.Nil(t, err)
			assert.True(t, bv)
			assert.Equal(t, len(p.Config().Sections), 4)

			// Typeless value is refused
			assertCategory(t, p.Write("x", record.Value{}), zxerr.ErrUsage)

			// Delete releases the section for reuse
			assert.Nil(t, p.Delete("b/c"))
			_, err = p.Read("b/c")
			assertCategory(t, err, zxerr.ErrNotFound)
			assert.Equal(t, len(p.Config().FreeSections), 1)
			freed := p.Config().FreeSections[0]
			assert.Nil(t, p.Write("f", record.Bytes([]byte{1, 2, 3})))
			assert.Equal(t, len(p.Config().FreeSections), 0)
			assert.Equal(t, p.Config().CurrentSectionId, freed)
			n, err = p.Count()
			assert.Nil(t, err)
			assert.Equal(t, n, int64(4))

			assert.True(t, p.BytesUsed() > 0)
			assert.True(t, p.BytesAvailable() > 0)
		})
	}
}

func TestPersistence(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	opts := Options{Root: root, Identity: acl.NewIdentity(0)}
	p, err := New(opts)
	assert.Nil(t, err)
	assert.Nil(t, p.Write("a", record.Text("x")))
	assert.Nil(t, p.Write("b", record.Text("y")))
	assert.Nil(t, p.Delete("b"))
	assert.Nil(t, p.Close())
	_, err = p.Read("a")
	assertCategory(t, err, zxerr.ErrUsage)

	p, err = New(opts)
	assert.Nil(t, err)
	defer p.Close()
	v, err := p.Read("a")
	assert.Nil(t, err)
	assert.Equal(t, string(v.Bytes), "x")
	assert.Equal(t, len(p.Config().Sections), 1)
	assert.Equal(t, len(p.Config().FreeSections), 1)
}

func TestSectionLimit(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(0),
		Config: &DbConfig{MaxSectionIndexSize: 2}})
	assert.Nil(t, err)
	defer p.Close()
	n, err := p.WriteMany([]Item{
		{"a", record.Number(1)},
		{"b", record.Number(2)},
		{"c", record.Number(3)},
		{"d", record.Number(4)}})
	assertCategory(t, err, zxerr.ErrUsage)
	assert.Equal(t, n, 2)
	assert.Equal(t, len(p.Config().Sections), 2)
	assert.Equal(t, len(p.Config().FreeSections), 0)

	// Overwrites need no new sections
	assert.Nil(t, p.Write("a", record.Number(5)))
}

func TestBatches(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(0)})
	assert.Nil(t, err)
	defer p.Close()

	n, err := p.WriteMany([]Item{
		{"a", record.Text("1")},
		{"b", record.Value{}},
		{"c", record.Text("3")}})
	assertCategory(t, err, zxerr.ErrUsage)
	assert.Equal(t, n, 1)

	n, err = p.WriteMany([]Item{{"b", record.Text("2")}, {"c", record.Text("3")}})
	assert.Nil(t, err)
	assert.Equal(t, n, 2)

	values, err := p.ReadMany([]string{"c", "a", "nope", "b"})
	assertCategory(t, err, zxerr.ErrNotFound)
	assert.Equal(t, len(values), 2)
	assert.Equal(t, string(values[0].Bytes), "3")
	assert.Equal(t, string(values[1].Bytes), "1")

	n, err = p.DeleteMany([]string{"a", "nope", "b"})
	assertCategory(t, err, zxerr.ErrNotFound)
	assert.Equal(t, n, 1)
	values, err = p.ReadMany([]string{"b", "c"})
	assert.Nil(t, err)
	assert.Equal(t, len(values), 2)
}

func TestEntryPermissions(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(1),
		Config: &DbConfig{OwnerId: 1, GroupId: 10}})
	assert.Nil(t, err)
	assert.Nil(t, p.Write("shared", record.Text("s")))

	// Entries written from now on are group read-only
	groupRead := acl.Private.With(acl.RoleGroup, acl.OpRead)
	p.Config().Permissions = groupRead.ToWord()
	assert.Nil(t, p.SaveConfig())
	assert.Nil(t, p.Write("mine", record.Text("m")))
	h, err := p.Stat("mine")
	assert.Nil(t, err)
	assert.Equal(t, acl.FromWord(h.Permissions), groupRead)
	p.Close()

	// Group member
	p, err = New(Options{Root: root, Identity: acl.NewIdentity(2, 10)})
	assert.Nil(t, err)
	defer p.Close()
	_, err = p.Read("mine")
	assert.Nil(t, err)
	assertCategory(t, p.Write("mine", record.Text("x")), zxerr.ErrUnauthorized)
	assertCategory(t, p.Delete("mine"), zxerr.ErrUnauthorized)
	assert.Nil(t, p.Write("shared", record.Text("s2")))
	assert.Nil(t, p.Write("theirs", record.Text("t")))
	h, err = p.Stat("theirs")
	assert.Nil(t, err)
	assert.Equal(t, h.OwnerId, int32(2))

	// Opening for write is refused at root level
	_, err = New(Options{Root: root, Identity: acl.NewIdentity(2, 10), Operation: acl.OpWrite})
	assertCategory(t, err, zxerr.ErrUnauthorized)
}

func TestReadOnly(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(0)})
	assert.Nil(t, err)
	defer p.Close()
	assert.Nil(t, p.Write("a", record.Text("1")))
	assert.Nil(t, p.Protect("a", true))
	h, err := p.Stat("a")
	assert.Nil(t, err)
	assert.True(t, h.ReadOnly)
	assertCategory(t, p.Write("a", record.Text("2")), zxerr.ErrUnauthorized)
	assertCategory(t, p.Delete("a"), zxerr.ErrUnauthorized)
	_, err = p.Read("a")
	assert.Nil(t, err)
	assert.Nil(t, p.Protect("a", false))
	assert.Nil(t, p.Write("a", record.Text("2")))
	assertCategory(t, p.Protect("nope", true), zxerr.ErrNotFound)
}

func TestPayloadCodec(t *testing.T) {
	t.Parallel()
	for _, cipher := range []Cipher{CipherNone, CipherGCM, CipherSIV} {
		cipher := cipher
		t.Run(string(cipher), func(t *testing.T) {
			t.Parallel()
			root := tempRoot(t)
			defer os.RemoveAll(root)
			opts := Options{Root: root, Identity: acl.NewIdentity(0),
				PayloadPassword: "pw",
				Config: &DbConfig{PayloadCodec: PayloadCodec{
					Compress: true, Cipher: cipher, Iterations: 16}}}
			p, err := New(opts)
			assert.Nil(t, err)
			text := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
			assert.Nil(t, p.Write("a", record.Text(text)))
			v, err := p.Read("a")
			assert.Nil(t, err)
			assert.Equal(t, string(v.Bytes), text)
			h, err := p.Stat("a")
			assert.Nil(t, err)
			assert.True(t, h.Size < int64(len(text)))
			p.Close()

			if cipher == CipherNone {
				return
			}
			assert.True(t, p.Config().PayloadCodec.Salt != "")

			opts.PayloadPassword = "wrong"
			p, err = New(opts)
			assert.Nil(t, err)
			_, err = p.Read("a")
			assertCategory(t, err, zxerr.ErrCodec)
			p.Close()

			opts.PayloadPassword = ""
			_, err = New(opts)
			assertCategory(t, err, zxerr.ErrUsage)
		})
	}
}

func TestCreateSection(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(0)})
	assert.Nil(t, err)
	defer p.Close()
	seen := map[uuid.UUID]bool{}
	for i := 0; i < 10; i++ {
		id, err := p.CreateSection()
		assert.Nil(t, err)
		assert.True(t, !seen[id])
		seen[id] = true
		fi, err := os.Stat(filepath.Join(root, DataDir, id.String()))
		assert.Nil(t, err)
		assert.Equal(t, fi.Size(), int64(0))
	}
}

func TestSectionContention(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(0),
		Retry: blockio.Retry{Attempts: 2, Backoff: blockio.FixedBackoff(10 * time.Millisecond)}})
	assert.Nil(t, err)
	defer p.Close()
	assert.Nil(t, p.Write("a", record.Text("1")))

	path := filepath.Join(root, DataDir, p.Config().CurrentSectionId.String())
	b, err := blockio.Open(path, blockio.ModeWrite)
	assert.Nil(t, err)
	_, err = p.Read("a")
	assertCategory(t, err, zxerr.ErrStreamContention)
	b.Close()
	_, err = p.Read("a")
	assert.Nil(t, err)
}

func TestWideIds(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	wide := int64(1)<<32 + 1
	groupRead := acl.Private.With(acl.RoleGroup, acl.OpRead)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(wide, 10),
		Config: &DbConfig{OwnerId: wide, GroupId: 10, Permissions: groupRead.ToWord()}})
	assert.Nil(t, err)

	// The header would record owner 1, so the write is refused
	assertCategory(t, p.Write("secret", record.Text("s")), zxerr.ErrUsage)
	n, err := p.Count()
	assert.Nil(t, err)
	assert.Equal(t, n, int64(0))
	assert.Equal(t, len(p.Config().Sections), 0)
	p.Close()

	// Identity 1 is not the owner of anything
	p, err = New(Options{Root: root, Identity: acl.NewIdentity(1, 10)})
	assert.Nil(t, err)
	_, err = p.Read("secret")
	assertCategory(t, err, zxerr.ErrNotFound)
	p.Close()

	// Same for groups
	root2 := tempRoot(t)
	defer os.RemoveAll(root2)
	p, err = New(Options{Root: root2, Identity: acl.NewIdentity(1),
		Config: &DbConfig{OwnerId: 1, GroupId: int64(1) << 40}})
	assert.Nil(t, err)
	defer p.Close()
	assertCategory(t, p.Write("x", record.Text("x")), zxerr.ErrUsage)
}

func TestCorruptHeader(t *testing.T) {
	t.Parallel()
	root := tempRoot(t)
	defer os.RemoveAll(root)
	p, err := New(Options{Root: root, Identity: acl.NewIdentity(1),
		Config: &DbConfig{OwnerId: 1}})
	assert.Nil(t, err)
	defer p.Close()
	assert.Nil(t, p.Write("x", record.Text("hello")))
	id, err := index.Lookup(p.index, "x")
	assert.Nil(t, err)

	h, err := p.Stat("x")
	assert.Nil(t, err)
	for _, bad := range []record.Header{
		{Address: record.HeaderSize, Size: 0x3fffffffffffffff},
		{Address: record.HeaderSize, Size: 6},
		{Address: record.HeaderSize, Size: -1},
		{Address: 0, Size: 5},
		{Address: 1 << 40, Size: 5},
	} {
		h.Address, h.Size = bad.Address, bad.Size
		hb, err := h.MarshalBinary()
		assert.Nil(t, err)
		f, err := os.OpenFile(p.sectionPath(id), os.O_WRONLY, 0600)
		assert.Nil(t, err)
		_, err = f.WriteAt(hb, 0)
		assert.Nil(t, err)
		f.Close()

		_, err = p.Read("x")
		assertCategory(t, err, zxerr.ErrLengthMismatch)
	}
}
