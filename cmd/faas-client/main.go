// faas-client is a small command-line front end over the client SDK, used
// to poke a running cluster: register the sample procedures, execute
// functions and workflows, and pull diagnostics from Workers.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/faasnet/faasnet/internal/client"
	"github.com/faasnet/faasnet/internal/logging"
	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/workerproc"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: faas-client [flags] <command> [args]

Commands:
  register <name>                 register a built-in sample procedure by name
  unregister <func_id>            unregister a function
  exec <func_id> <positional-json> [defaults-json]
                                  execute a function, e.g. exec abc '[12,69]' '{"c":21}'
  chain <workflow-file>           validate and execute a workflow chain
  list                            list functions registered by this client
  stats [func_name]               per-function execution statistics
  worker-ids                      live worker ids
  worker-info <worker_id>         one worker's diagnostic info
  cache-dump <worker_id>          one worker's result cache contents
  ping                            round-trip through any worker

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	addr := flag.String("director", "tcp://127.0.0.1:5555", "Director address")
	timeoutMs := flag.Int("timeout-ms", 5000, "Receive timeout in milliseconds")
	cache := flag.Bool("cache", false, "exec: cache the result on the worker")
	flag.Usage = usage
	flag.Parse()

	logging.Init(logging.Config{Level: logging.WarnLevel})

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	c, err := client.New(*addr, *timeoutMs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faas-client: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	resp, err := run(c, args, *cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faas-client: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if resp.Status != "ok" {
		os.Exit(1)
	}
}

func run(c *client.Client, args []string, cacheResult bool) (*protocol.ClientResponse, error) {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register":
		if len(rest) != 1 {
			return nil, fmt.Errorf("register needs exactly one procedure name")
		}
		spec, ok := workerproc.BuiltinProcedures()[rest[0]]
		if !ok {
			return nil, fmt.Errorf("no built-in procedure named %q", rest[0])
		}
		return c.Register(rest[0], spec.Signature)

	case "unregister":
		if len(rest) != 1 {
			return nil, fmt.Errorf("unregister needs exactly one func_id")
		}
		return c.Unregister(rest[0])

	case "exec":
		if len(rest) < 2 || len(rest) > 3 {
			return nil, fmt.Errorf("exec needs <func_id> <positional-json> [defaults-json]")
		}
		var positional []any
		if err := json.Unmarshal([]byte(rest[1]), &positional); err != nil {
			return nil, fmt.Errorf("positional args must be a JSON array: %w", err)
		}
		defaults := map[string]any{}
		if len(rest) == 3 {
			if err := json.Unmarshal([]byte(rest[2]), &defaults); err != nil {
				return nil, fmt.Errorf("default args must be a JSON object: %w", err)
			}
		}
		return c.Exec(rest[0], positional, defaults, cacheResult)

	case "chain":
		if len(rest) != 1 {
			return nil, fmt.Errorf("chain needs exactly one workflow file")
		}
		raw, err := os.ReadFile(rest[0])
		if err != nil {
			return nil, err
		}
		return c.ChainExec(raw)

	case "list":
		return c.List()

	case "stats":
		if len(rest) == 1 {
			return c.GetStats(&rest[0])
		}
		return c.GetStats(nil)

	case "worker-ids":
		return c.GetWorkerIDs()

	case "worker-info":
		if len(rest) != 1 {
			return nil, fmt.Errorf("worker-info needs exactly one worker_id")
		}
		return c.GetWorkerInfo(rest[0])

	case "cache-dump":
		if len(rest) != 1 {
			return nil, fmt.Errorf("cache-dump needs exactly one worker_id")
		}
		return c.GetCacheDump(rest[0])

	case "ping":
		return c.Ping()

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}
