package main

import (
	"context"
	"fmt"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"os"
	"os/signal"
	"strings"
	"tagsearch/importing"
	ownIo "tagsearch/io"
	"tagsearch/library"
	"tagsearch/parser"
	"tagsearch/query"
	"tagsearch/web"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Library string      `help:"The SQLite file of the library." placeholder:"<library-file>" env:"TAGSEARCH_LIBRARY" default:"tagsearch.db"`
	Import  struct {
		Directory string `help:"The directory containing the files." placeholder:"<directory>" arg:"" type:"existingdir"`
		Tags      string `help:"File with lines of the form 'path=tag1|tag2' assigning tags to the files." placeholder:"<tag-file>" type:"existingfile"`
	} `cmd:"" help:"Imports all files of the given directory into the library."`
	Query struct {
		Query string `help:"The query string. An empty query matches all entries." placeholder:"<query>" arg:"" optional:""`
		File  bool   `help:"Write the result to output.json instead of stdout."`
	} `cmd:"" help:"Returns all entries of the library matching the given query."`
	Tokenize struct {
		Query string `help:"The query string." placeholder:"<query>" arg:""`
	} `cmd:"" help:"Prints the tokens of the given query."`
	Parse struct {
		Query string `help:"The query string." placeholder:"<query>" arg:""`
	} `cmd:"" help:"Parses the given query and prints it in its canonical form."`
	Tags   struct{} `cmd:"" help:"Prints all tags of the library."`
	Server struct {
		Port    string `help:"The port this server should listen to." default:"8080"`
		TlsCert string `help:"The certificate file for TLS support." type:"existingfile"`
		TlsKey  string `help:"The key file for TLS support." type:"existingfile"`
	} `cmd:"" help:"Starts a server to answer queries via HTTP."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("tagsearch"),
		kong.Description("A tool to search tagged files with a simple query language."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	signalContext, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch ctx.Command() {
	case "import <directory>":
		lib := openLibrary(signalContext)
		defer lib.Close()

		_, err := importing.Import(signalContext, cli.Import.Directory, cli.Import.Tags, lib)
		sigolo.FatalCheck(err)
	case "query", "query <query>":
		node := parseOrExit(cli.Query.Query)

		lib := openLibrary(signalContext)
		defer lib.Close()

		entries, err := lib.Search(signalContext, node)
		sigolo.FatalCheck(err)
		sigolo.Debugf("Found %d entries", len(entries))

		tags, err := lib.Tags(signalContext)
		sigolo.FatalCheck(err)

		if cli.Query.File {
			err = ownIo.WriteEntriesAsJsonFile(entries, tags)
		} else {
			err = ownIo.WriteEntriesAsJson(entries, tags, os.Stdout)
			fmt.Println()
		}
		sigolo.FatalCheck(err)
	case "tokenize <query>":
		for _, token := range parser.Tokenize(cli.Tokenize.Query) {
			fmt.Printf("%-20s %-12q [%d, %d)\n", token.Kind.String(), token.Data, token.Start, token.End)
		}
	case "parse <query>":
		node := parseOrExit(cli.Parse.Query)
		fmt.Println(query.Format(node))
	case "tags":
		lib := openLibrary(signalContext)
		defer lib.Close()

		tags, err := lib.Tags(signalContext)
		sigolo.FatalCheck(err)

		err = ownIo.WriteTagsAsJson(tags, os.Stdout)
		sigolo.FatalCheck(err)
		fmt.Println()
	case "server":
		lib := openLibrary(signalContext)
		defer lib.Close()

		if cli.Server.TlsCert != "" && cli.Server.TlsKey != "" {
			web.StartServerTls(cli.Server.Port, cli.Server.TlsCert, cli.Server.TlsKey, lib)
		} else {
			web.StartServer(cli.Server.Port, lib)
		}
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func openLibrary(ctx context.Context) library.Library {
	sigolo.Debugf("Open library %s", cli.Library)
	lib, err := library.OpenSqliteLibrary(ctx, cli.Library)
	sigolo.FatalCheck(err)
	return lib
}

// parseOrExit prints syntax errors with the erroneous part of the query underlined.
func parseOrExit(queryString string) query.Node {
	node, err := parser.ParseQueryString(queryString)
	if err == nil {
		return node
	}

	parsingError := parser.AsParsingError(err)
	if parsingError == nil {
		sigolo.FatalCheck(err)
	}

	fmt.Fprintln(os.Stderr, parsingError.Message)
	fmt.Fprintln(os.Stderr, queryString)
	fmt.Fprintln(os.Stderr, underline(queryString, parsingError.Start, parsingError.End))
	os.Exit(1)
	return nil
}

// underline returns a line marking the rune span [start, end) of the given query with "^". Tabs are kept to stay
// aligned with the printed query.
func underline(queryString string, start int, end int) string {
	var sb strings.Builder
	for i, r := range []rune(queryString) {
		if i >= start {
			break
		}
		if r == '\t' {
			sb.WriteRune('\t')
		} else {
			sb.WriteRune(' ')
		}
	}
	sb.WriteString(strings.Repeat("^", max(end-start, 1)))
	return sb.String()
}
