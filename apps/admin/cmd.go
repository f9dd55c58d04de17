package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/auth"
	"github.com/acevedod1974/gradebook/core/backup"
	"github.com/acevedod1974/gradebook/core/course"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	courseSvc *course.Service
	authSvc   *auth.Service
	backupSvc *backup.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  seed                             - load demo courses and students")
	fmt.Println("  resetpassword -email EMAIL       - reset a student's password")
	fmt.Println("  backup -sink SINK                - snapshot state to a storage sink")
	fmt.Println("  restore -sink SINK -name NAME    - restore state from a stored snapshot")
	fmt.Println("  listbackups -sink SINK           - list snapshots in a storage sink")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The student's email. The password will be prompted next.")

	backupCmd := flag.NewFlagSet("backup", flag.ExitOnError)
	backupSink := backupCmd.String("sink", "local", "The storage sink to snapshot to.")

	restoreCmd := flag.NewFlagSet("restore", flag.ExitOnError)
	restoreSink := restoreCmd.String("sink", "local", "The storage sink to restore from.")
	restoreName := restoreCmd.String("name", "", "The snapshot name, as shown by listbackups.")

	listCmd := flag.NewFlagSet("listbackups", flag.ExitOnError)
	listSink := listCmd.String("sink", "local", "The storage sink to list.")

	switch args[1] {
	case "seed":
		return cli.seed()
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, string(pwd))
	case "backup":
		if err := backupCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.backup(*backupSink)
	case "restore":
		if err := restoreCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *restoreName == "" {
			restoreCmd.Usage()
			return errHelp
		}
		return cli.restore(*restoreSink, *restoreName)
	case "listbackups":
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listBackups(*listSink)
	default:
		cli.printUsage()
		return errHelp
	}
}
