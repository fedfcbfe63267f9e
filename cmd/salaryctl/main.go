/*
main.go - salaryctl, a terminal front-end for the salary API

PURPOSE:
  Drives the orchestration layer against a running server: the same period
  rules, validation and refetch discipline as any other front-end, with
  text output.

USAGE:
  salaryctl [-server URL] [-env FILE] <command> [flags]

  teachers                                   list teachers
  list      -teacher ID [-status S] [-academic-year ID]
  periods   -teacher ID [-year Y]            month picker for a year
  preview   -teacher ID [-period YYYY-MM]
  generate  -teacher ID [-period YYYY-MM] [-yes]
  approve   -teacher ID -id CALC [-amount A] [-reason R]
  reopen    -teacher ID -id CALC -reason R
  audit     -teacher ID -id CALC
  scenario  -load NAME                       reset the server with demo data

  Without -period, preview and generate use the default selection.
  generate asks for confirmation on a terminal unless -yes is given.

CONFIGURATION:
  SALARY_SERVER_URL and SALARY_REQUEST_TIMEOUT (or .env) set the defaults.
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	cli, err := newCommandLine(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "salaryctl: %v\n", err)
		os.Exit(1)
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
