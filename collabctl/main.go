package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/edithub/collab/collab"
)

const CollabCtlVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Edit Hub collaboration control.

The default urls are:
    api_url: http://localhost:3000/api
    ws_url: ws://localhost:3000

Usage:
    collabctl login [--api_url=<api_url>] --user_auth=<user_auth> [--password=<password>]
    collabctl whoami --jwt=<jwt>
    collabctl projects [--api_url=<api_url>] --jwt=<jwt>
    collabctl tree [--api_url=<api_url>] --jwt=<jwt> --project=<project_id> [--path=<path>]
    collabctl cat [--api_url=<api_url>] --jwt=<jwt> --project=<project_id> <file_path>
    collabctl commit [--api_url=<api_url>] --jwt=<jwt> --project=<project_id>
        [--message=<message>] <file_path>
    collabctl watch [--ws_url=<ws_url>] --jwt=<jwt> --project=<project_id>
        [--duration=<seconds>]

Options:
    -h --help               Show this screen.
    --version               Show version.
    --api_url=<api_url>
    --ws_url=<ws_url>
    --user_auth=<user_auth>  Login email.
    --password=<password>    Prompted when omitted.
    --jwt=<jwt>              Your platform JWT.
    --project=<project_id>
    --path=<path>            Tree path to list.
    --message=<message>      Commit message.
    --duration=<seconds>     Watch this long then exit. Default until interrupted.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], CollabCtlVersion)
	if err != nil {
		panic(err)
	}

	if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if whoami_, _ := opts.Bool("whoami"); whoami_ {
		whoami(opts)
	} else if projects_, _ := opts.Bool("projects"); projects_ {
		projects(opts)
	} else if tree_, _ := opts.Bool("tree"); tree_ {
		tree(opts)
	} else if cat_, _ := opts.Bool("cat"); cat_ {
		cat(opts)
	} else if commit_, _ := opts.Bool("commit"); commit_ {
		commit(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	}
}

func api(opts docopt.Opts) *collab.EditHubApi {
	apiUrl, err := opts.String("--api_url")
	if err != nil || apiUrl == "" {
		apiUrl = "http://localhost:3000/api"
	}
	api := collab.NewEditHubApi(apiUrl)
	if jwt, err := opts.String("--jwt"); err == nil && jwt != "" {
		api.SetByJwt(jwt)
	}
	return api
}

func requireProjectId(opts docopt.Opts) collab.Id {
	projectIdStr, err := opts.String("--project")
	if err != nil {
		panic(err)
	}
	projectId, err := collab.ParseId(projectIdStr)
	if err != nil {
		panic(err)
	}
	return projectId
}

func login(opts docopt.Opts) {
	userAuth, err := opts.String("--user_auth")
	if err != nil {
		panic(err)
	}

	password, _ := opts.String("--password")
	if password == "" {
		Out.Printf("password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			panic(err)
		}
		Out.Printf("\n")
		password = string(passwordBytes)
	}

	result, err := api(opts).AuthLoginSync(&collab.AuthLoginArgs{
		Email:    userAuth,
		Password: password,
	})
	if err != nil {
		panic(err)
	}
	if result.Error != nil {
		Out.Printf("login error: %s\n", result.Error.Message)
		os.Exit(1)
	}
	Out.Printf("%s\n", result.Token)
}

func whoami(opts docopt.Opts) {
	jwt, err := opts.String("--jwt")
	if err != nil {
		panic(err)
	}
	byJwt, err := collab.ParseByJwtUnverified(jwt)
	if err != nil {
		panic(err)
	}
	Out.Printf("userId: %s\n", byJwt.UserId)
	Out.Printf("name: %s\n", byJwt.UserName)
	Out.Printf("email: %s\n", byJwt.UserEmail)
}

func projects(opts docopt.Opts) {
	result, err := api(opts).GetProjectsSync(&collab.GetProjectsArgs{})
	if err != nil {
		panic(err)
	}
	for _, project := range result.Projects {
		Out.Printf("%s %s %s\n", project.ProjectId, project.Status, project.Name)
	}
}

func tree(opts docopt.Opts) {
	path, _ := opts.String("--path")
	result, err := api(opts).GetFileTreeSync(&collab.GetFileTreeArgs{
		ProjectId: requireProjectId(opts),
		Path:      path,
	})
	if err != nil {
		panic(err)
	}
	printTree(result.Items, "")
}

func printTree(items []*collab.FileTreeItem, indent string) {
	for _, item := range items {
		Out.Printf("%s%s\n", indent, item.Name)
		if 0 < len(item.Children) {
			printTree(item.Children, indent+"  ")
		}
	}
}

func cat(opts docopt.Opts) {
	filePath, err := opts.String("<file_path>")
	if err != nil {
		panic(err)
	}
	result, err := api(opts).GetFileContentSync(&collab.GetFileContentArgs{
		ProjectId: requireProjectId(opts),
		FilePath:  filePath,
	})
	if err != nil {
		panic(err)
	}
	Out.Printf("%s", result.Content)
}

func commit(opts docopt.Opts) {
	filePath, err := opts.String("<file_path>")
	if err != nil {
		panic(err)
	}
	message, _ := opts.String("--message")

	contentBytes, err := io.ReadAll(os.Stdin)
	if err != nil {
		panic(err)
	}

	result, err := api(opts).SaveFileSync(&collab.SaveFileArgs{
		ProjectId: requireProjectId(opts),
		FilePath:  filePath,
		Content:   string(contentBytes),
		Message:   message,
	})
	if err != nil {
		panic(err)
	}
	Out.Printf("%s %s\n", result.Path, result.Etag)
}

func watch(opts docopt.Opts) {
	wsUrl, err := opts.String("--ws_url")
	if err != nil || wsUrl == "" {
		wsUrl = "ws://localhost:3000"
	}
	jwt, err := opts.String("--jwt")
	if err != nil {
		panic(err)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auth := &collab.ClientAuth{
		ByJwt:      jwt,
		InstanceId: collab.NewId(),
		AppVersion: fmt.Sprintf("collabctl %s", CollabCtlVersion),
	}
	session := collab.NewSessionWithDefaults(cancelCtx, wsUrl, requireProjectId(opts), auth)
	defer session.Close()

	session.AddStateCallback(func(state collab.ConnectionState) {
		Out.Printf("[%s]\n", state)
	})
	session.AddMessageCallback(func(message collab.IncomingMessage) {
		Out.Printf("<- %s\n", message.MessageType())
	})
	session.Presence().AddPresenceCallback(func(users []*collab.PresenceEntry) {
		Out.Printf("%d active:\n", len(users))
		for _, user := range users {
			location := user.FilePath
			if user.Cursor != nil {
				location = fmt.Sprintf("%s:%d:%d", user.FilePath, user.Cursor.Line, user.Cursor.Column)
			}
			Out.Printf("    %s %s %s\n", user.UserId, user.UserName, location)
		}
	})

	if durationStr, err := opts.String("--duration"); err == nil && durationStr != "" {
		seconds, err := strconv.Atoi(durationStr)
		if err != nil {
			panic(err)
		}
		select {
		case <-time.After(time.Duration(seconds) * time.Second):
		}
	} else {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-stop:
		}
	}
}
