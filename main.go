package main

import (
	"fmt"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"os"
	"sat/importing"
	"sat/join"
	"sat/scan"
	"sat/shard"
	"sat/web"
	"strings"
)

const VERSION = "v0.1.0"

type findArgs struct {
	ID           string   `help:"Comma-separated list of feature identifiers to search for." name:"id" required:""`
	JoinedOutput string   `help:"Optional path to save the joined output of all matching shards to." name:"joinedOutput"`
	Shards       []string `help:"Shard files or folders containing them." placeholder:"<shard-file-or-folder>" arg:""`
}

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	FindId  findArgs    `cmd:"" name:"find-id" help:"Finds which shard files contain the features with the given identifiers."`
	// Alias entry point, same contract as find-id.
	FindAtlasId findArgs `cmd:"" name:"find-atlas-id" help:"Finds which shard files contain the features with the given identifiers."`
	Join        struct {
		Output  string   `help:"The file to save the joined output to." name:"output" required:""`
		Atlases string   `help:"Comma-separated list of shard names to join. All supplied shards are joined when omitted." name:"atlases"`
		Shards  []string `help:"Shard files or folders containing them." placeholder:"<shard-file-or-folder>" arg:""`
	} `cmd:"" help:"Joins multiple shard files into a single packed file."`
	PbfToAtlas struct {
		Output      string `help:"The shard file to write." name:"output" required:""`
		ShardName   string `help:"Shard name stored in the output metadata. Defaults to the output file stem." name:"shard-name"`
		NoNodes     bool   `help:"Do not load routable nodes." name:"no-nodes"`
		NoEdges     bool   `help:"Do not load routable edges." name:"no-edges"`
		NoAreas     bool   `help:"Do not load areas." name:"no-areas"`
		NoLines     bool   `help:"Do not load lines." name:"no-lines"`
		NoPoints    bool   `help:"Do not load points." name:"no-points"`
		NoRelations bool   `help:"Do not load relations." name:"no-relations"`
		Input       string `help:"The input file. Either .osm or .osm.pbf." placeholder:"<input-file>" arg:"" type:"existingfile"`
	} `cmd:"" name:"pbf-to-atlas" help:"Converts an OSM file into a single packed shard file."`
	Server struct {
		Port   string   `help:"Port to listen on." default:"8080"`
		Shards []string `help:"Shard files or folders containing them." placeholder:"<shard-file-or-folder>" arg:""`
	} `cmd:"" help:"Serves the identifier search over HTTP."`
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
		kong.Name("sat"),
		kong.Description("Simple atlas tools: find features by identifier across shard files and join shards into one packed file."),
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

	switch ctx.Command() {
	case "find-id <shards>":
		find(cli.FindId)
	case "find-atlas-id <shards>":
		find(cli.FindAtlasId)
	case "join <shards>":
		source, err := shard.Resolve(cli.Join.Shards)
		sigolo.FatalCheck(err)

		var registry *shard.Registry
		if cli.Join.Atlases != "" {
			registry = shard.NewRegistryFromNames(strings.Split(cli.Join.Atlases, ","))
		} else {
			registry = shard.NewRegistry()
			for _, handle := range source {
				registry.Add(handle.Name)
			}
		}

		err = join.Consolidate(source, registry, cli.Join.Output)
		sigolo.FatalCheck(err)
	case "pbf-to-atlas <input>":
		options := importing.DefaultLoadOptions()
		options.Nodes = !cli.PbfToAtlas.NoNodes
		options.Edges = !cli.PbfToAtlas.NoEdges
		options.Areas = !cli.PbfToAtlas.NoAreas
		options.Lines = !cli.PbfToAtlas.NoLines
		options.Points = !cli.PbfToAtlas.NoPoints
		options.Relations = !cli.PbfToAtlas.NoRelations

		err := importing.Import(cli.PbfToAtlas.Input, cli.PbfToAtlas.Output, cli.PbfToAtlas.ShardName, options)
		sigolo.FatalCheck(err)
	case "server <shards>":
		source, err := shard.Resolve(cli.Server.Shards)
		sigolo.FatalCheck(err)

		web.StartServer(cli.Server.Port, source)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func find(args findArgs) {
	identifierSet, err := scan.ParseIdentifierSet(args.ID)
	sigolo.FatalCheck(err)

	source, err := shard.Resolve(args.Shards)
	sigolo.FatalCheck(err)

	driver := scan.NewDriver(scan.IdentifierPredicate(identifierSet), scan.NewReporter(os.Stdout))
	registry := shard.NewRegistry()

	err = driver.Run(source, registry)
	sigolo.FatalCheck(err)

	if args.JoinedOutput != "" && !registry.Empty() {
		err = join.Consolidate(source, registry, args.JoinedOutput)
		sigolo.FatalCheck(err)
	}
}
