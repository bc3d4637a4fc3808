/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 13:01:44 2018 mstenber
 * Last modified: Mon Mar 26 16:20:08 2018 mstenber
 * Edit time:     104 min
 *
 */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/fingon/go-zxtree/acl"
	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/record"
	"github.com/fingon/go-zxtree/storage"
	. "github.com/fingon/go-zxtree/zxerr"
)

/*
Output serialization formats
*/
const (
	FmtJson = "json"
	FmtDumb = "dumb"
)

type baseCLI struct {
	Root            string
	Token, IV       string
	Uid             int64
	Gids            []int64
	Format          string
	PayloadPassword string
	Mlog            string

	InitCLI struct {
		Name        string
		Index       string
		Permissions string
		Group       int64
		Compress    bool
		Cipher      string
		MaxSections int64
	}
	PutCLI struct {
		Path, Value, Type string
		ReadOnly          bool
	}
	Paths []string
}

func configureInit(cli *baseCLI, cmd *kingpin.CmdClause) {
	kinds := []string{}
	for _, k := range index.Kinds() {
		kinds = append(kinds, k.String())
	}
	cmd.Flag("name", "Database name").
		StringVar(&cli.InitCLI.Name)
	cmd.Flag("index", "Index kind").
		Default(index.KindZip.String()).
		EnumVar(&cli.InitCLI.Index, kinds...)
	cmd.Flag("permissions", "Root permissions, e.g. rwdrwd--- (default: shared)").
		StringVar(&cli.InitCLI.Permissions)
	cmd.Flag("group", "Owning group id").
		Int64Var(&cli.InitCLI.Group)
	cmd.Flag("compress", "Compress section payloads").
		BoolVar(&cli.InitCLI.Compress)
	cmd.Flag("cipher", "Section payload cipher [none, gcm, siv]").
		Default("none").
		EnumVar(&cli.InitCLI.Cipher, "none", string(storage.CipherGCM), string(storage.CipherSIV))
	cmd.Flag("max-sections", "Maximum number of sections").
		Default("65535").
		Int64Var(&cli.InitCLI.MaxSections)
}

func configurePut(cli *baseCLI, cmd *kingpin.CmdClause) {
	cmd.Arg("path", "Entry path").
		Required().
		StringVar(&cli.PutCLI.Path)
	cmd.Arg("value", "Value in its textual form").
		Required().
		StringVar(&cli.PutCLI.Value)
	cmd.Flag("type", "Value type").
		Default(record.DataType_TEXT.String()).
		EnumVar(&cli.PutCLI.Type,
			record.DataType_TEXT.String(), record.DataType_NUMBER.String(),
			record.DataType_BOOLEAN.String(), record.DataType_DATETIME.String(),
			record.DataType_BYTES.String())
	cmd.Flag("readonly", "Protect the entry against writes and deletes").
		BoolVar(&cli.PutCLI.ReadOnly)
}

func main() {
	ctx := context.Background()
	exitCode := Main(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(int(exitCode))
}

func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) ExitCode {
	cli := baseCLI{}

	app := kingpin.New("zxtree", "Embedded named-entry storage")
	app.HelpFlag.Short('h')

	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	app.Flag("root", "Storage root directory").
		Envar("ZXTREE_ROOT").
		Required().
		StringVar(&cli.Root)
	app.Flag("token", "Metadata encryption token").
		Envar("ZXTREE_TOKEN").
		StringVar(&cli.Token)
	app.Flag("iv", "Metadata encryption iv secret").
		Envar("ZXTREE_IV").
		StringVar(&cli.IV)
	app.Flag("payload-password", "Section payload password").
		Envar("ZXTREE_PAYLOAD_PASSWORD").
		StringVar(&cli.PayloadPassword)
	app.Flag("uid", "Identity to act as").
		Default(fmt.Sprint(os.Getuid())).
		Int64Var(&cli.Uid)
	app.Flag("gid", "Groups of the identity").
		Int64ListVar(&cli.Gids)
	app.Flag("format", "Output api format").
		Default(FmtDumb).
		EnumVar(&cli.Format, FmtJson, FmtDumb)
	app.Flag("mlog", "Enable logging of facilities matching the given regular expression").
		StringVar(&cli.Mlog)

	appInit := app.Command("init", "create a storage root")
	configureInit(&cli, appInit)

	appPut := app.Command("put", "write an entry")
	configurePut(&cli, appPut)

	appGet := app.Command("get", "read entries")
	appGet.Arg("path", "Entry paths").Required().StringsVar(&cli.Paths)

	appRm := app.Command("rm", "delete entries")
	appRm.Arg("path", "Entry paths").Required().StringsVar(&cli.Paths)

	appStat := app.Command("stat", "show entry headers")
	appStat.Arg("path", "Entry paths").Required().StringsVar(&cli.Paths)

	appCount := app.Command("count", "count entries")

	var termErr error
	app.Terminate(func(status int) {
		termErr = fmt.Errorf("parsing error: %d", status)
	})
	cmd, err := app.Parse(args[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUsage
	}
	if termErr != nil {
		fmt.Fprintln(stderr, termErr)
		return ExitUsage
	}
	if cli.Mlog != "" {
		defer mlog.SetPattern(cli.Mlog)()
	}

	var results []Result
	switch cmd {
	case appInit.FullCommand():
		results, err = executeInit(ctx, cli)
	case appPut.FullCommand():
		results, err = executePut(ctx, cli)
	case appGet.FullCommand():
		results, err = executeGet(ctx, cli)
	case appRm.FullCommand():
		results, err = executeRm(ctx, cli)
	case appStat.FullCommand():
		results, err = executeStat(ctx, cli)
	case appCount.FullCommand():
		results, err = executeCount(ctx, cli)
	}
	SerializeResults(cli.Format, results, err, stdout, stderr)
	return ExitCodeFor(err)
}

func openStorage(cli baseCLI, op acl.Operation, bootstrap *storage.DbConfig) (*storage.Provider, error) {
	if bootstrap == nil {
		_, err := os.Stat(filepath.Join(cli.Root, storage.ConfigFile))
		if os.IsNotExist(err) {
			return nil, Errorf(ErrNotFound, "%s has not been initialized", cli.Root)
		}
	}
	who := acl.NewIdentity(cli.Uid, cli.Gids...)
	opts := storage.NewOptionsWithSecrets(cli.Root, who, cli.Token, cli.IV)
	opts.Operation = op
	opts.PayloadPassword = cli.PayloadPassword
	opts.Config = bootstrap
	return storage.New(opts)
}

func executeInit(ctx context.Context, cli baseCLI) ([]Result, error) {
	if _, err := os.Stat(cli.Root); err == nil {
		entries, _ := os.ReadDir(cli.Root)
		if len(entries) > 0 {
			return nil, Errorf(ErrUsage, "%s is not empty", cli.Root)
		}
	}
	kind, err := index.ParseKind(cli.InitCLI.Index)
	if err != nil {
		return nil, err
	}
	cfg := storage.DefaultDbConfig()
	cfg.DbName = cli.InitCLI.Name
	cfg.OwnerId = cli.Uid
	cfg.GroupId = cli.InitCLI.Group
	cfg.IndexKind = kind
	cfg.MaxSectionIndexSize = cli.InitCLI.MaxSections
	cfg.PayloadCodec.Compress = cli.InitCLI.Compress
	if cli.InitCLI.Cipher != "none" {
		cfg.PayloadCodec.Cipher = storage.Cipher(cli.InitCLI.Cipher)
	}
	if cli.InitCLI.Permissions != "" {
		p, err := acl.ParsePermission(cli.InitCLI.Permissions)
		if err != nil {
			return nil, err
		}
		cfg.Permissions = p.ToWord()
	}
	st, err := openStorage(cli, acl.OpWrite, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return []Result{{Path: cli.Root}}, nil
}

func executePut(ctx context.Context, cli baseCLI) ([]Result, error) {
	t, err := record.ParseDataType(cli.PutCLI.Type)
	if err != nil {
		return nil, err
	}
	v, err := record.Parse(t, cli.PutCLI.Value)
	if err != nil {
		return nil, err
	}
	st, err := openStorage(cli, acl.OpWrite, nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	if err = st.Write(cli.PutCLI.Path, v); err != nil {
		return nil, err
	}
	if cli.PutCLI.ReadOnly {
		if err = st.Protect(cli.PutCLI.Path, true); err != nil {
			return nil, err
		}
	}
	return []Result{{Path: cli.PutCLI.Path, Type: t.String(), Value: cli.PutCLI.Value}}, nil
}

func executeGet(ctx context.Context, cli baseCLI) (results []Result, err error) {
	st, err := openStorage(cli, acl.OpRead, nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	values, err := st.ReadMany(cli.Paths)
	for i, v := range values {
		s, ferr := v.Format()
		if ferr != nil {
			return results, ferr
		}
		results = append(results, Result{Path: cli.Paths[i], Type: v.Type.String(), Value: s})
	}
	return
}

func executeRm(ctx context.Context, cli baseCLI) (results []Result, err error) {
	st, err := openStorage(cli, acl.OpDelete, nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	n, err := st.DeleteMany(cli.Paths)
	for _, path := range cli.Paths[:n] {
		results = append(results, Result{Path: path})
	}
	return
}

func executeStat(ctx context.Context, cli baseCLI) (results []Result, err error) {
	st, err := openStorage(cli, acl.OpRead, nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	for _, path := range cli.Paths {
		h, err := st.Stat(path)
		if err != nil {
			return results, err
		}
		results = append(results, Result{Path: path,
			Type:        h.DataType.String(),
			Size:        h.Size,
			Owner:       int64(h.OwnerId),
			Group:       int64(h.GroupId),
			Permissions: acl.FromWord(h.Permissions).String(),
			ReadOnly:    h.ReadOnly,
			Created:     h.TimeCreated,
			Written:     h.TimeWritten})
	}
	return
}

func executeCount(ctx context.Context, cli baseCLI) ([]Result, error) {
	st, err := openStorage(cli, acl.OpRead, nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	n, err := st.Count()
	if err != nil {
		return nil, err
	}
	return []Result{{Path: cli.Root,
		Type:  record.DataType_NUMBER.String(),
		Value: strconv.FormatInt(n, 10),
		Size:  int64(st.BytesUsed())}}, nil
}

func dumbLine(r Result) string {
	fields := []string{r.Path}
	switch {
	case r.Written != 0:
		fields = append(fields, r.Type, fmt.Sprint(r.Size), r.Permissions,
			fmt.Sprint(r.Owner), fmt.Sprint(r.Group))
		if r.ReadOnly {
			fields = append(fields, "readonly")
		}
	case r.Type != "":
		fields = append(fields, r.Value)
	}
	return strings.Join(fields, "\t")
}
