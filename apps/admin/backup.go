package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) backup(sink string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	name, err := cli.backupSvc.Save(ctx, sink)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s to sink %q\n", name, sink)
	return nil
}

func (cli *commandLine) restore(sink, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cli.backupSvc.Restore(ctx, sink, name); err != nil {
		return err
	}
	// persist the adopted state locally so the next run starts from it
	if sink != "local" {
		if err := cli.snapshot(); err != nil {
			return err
		}
	}
	fmt.Printf("restored %s from sink %q\n", name, sink)
	return nil
}

func (cli *commandLine) listBackups(sink string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	names, err := cli.backupSvc.List(ctx, sink)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// snapshot writes the current state to the local sink after a mutation.
func (cli *commandLine) snapshot() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := cli.backupSvc.Save(ctx, "local")
	return err
}
