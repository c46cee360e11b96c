package vcs

import (
	"errors"
	"fmt"
	"strings"
)

// fieldSep separates the fields of one log entry. git emits it for %x1f.
const fieldSep = "\x1f"

// recordFields is the number of fields PrettyFormat produces
const recordFields = 10

// PrettyFormat is the --pretty directive requesting one record per commit.
// Field order: commit, abbreviated commit, refs, subject, author name,
// author email, author date, committer name, committer email, committer date.
var PrettyFormat = "--pretty=format:" + strings.Join([]string{
	"%H", "%h", "%D", "%s",
	"%an", "%ae", "%ad",
	"%cn", "%ce", "%cd",
}, "%x1f")

var errEmptyOutput = errors.New("empty log output")

// Person identifies the author or committer of a commit
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

// Record is the last commit that touched one asset
type Record struct {
	Commit            string `json:"commit"`
	AbbreviatedCommit string `json:"abbreviated_commit"`
	Refs              string `json:"refs"`
	Subject           string `json:"subject"`
	Author            Person `json:"author"`
	Committer         Person `json:"committer"`
}

// ParseRecord decodes the output of a single-entry log produced with PrettyFormat
func ParseRecord(out []byte) (Record, error) {
	line := strings.TrimRight(string(out), "\r\n")
	if line == "" {
		return Record{}, errEmptyOutput
	}
	if strings.ContainsAny(line, "\r\n") {
		return Record{}, fmt.Errorf("expected one log entry, got %d lines", strings.Count(line, "\n")+1)
	}

	f := strings.Split(line, fieldSep)
	if len(f) != recordFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", recordFields, len(f))
	}

	return Record{
		Commit:            f[0],
		AbbreviatedCommit: f[1],
		Refs:              f[2],
		Subject:           f[3],
		Author:            Person{Name: f[4], Email: f[5], Date: f[6]},
		Committer:         Person{Name: f[7], Email: f[8], Date: f[9]},
	}, nil
}

// Line encodes the record the way git prints it for PrettyFormat. Test doubles
// use it to fake command output.
func (r Record) Line() string {
	return strings.Join([]string{
		r.Commit, r.AbbreviatedCommit, r.Refs, r.Subject,
		r.Author.Name, r.Author.Email, r.Author.Date,
		r.Committer.Name, r.Committer.Email, r.Committer.Date,
	}, fieldSep)
}
