// Command warrantyctl previews purchase extraction for .eml files and
// manages the IMAP password in the OS keyring.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felo/warranty-tracker/internal/credential"
	"github.com/felo/warranty-tracker/internal/parser"
	"github.com/felo/warranty-tracker/internal/purchase"
	"github.com/felo/warranty-tracker/internal/scanner"
)

const usage = `Usage: warrantyctl <command> [arguments]

Commands:
  preview <path>...       print what would be extracted from each email;
                          directories are searched for .eml files
  set-password <user>     read the IMAP password for user from stdin
  delete-password <user>  remove the stored IMAP password for user
`

// previewDoc is the YAML shape printed by preview
type previewDoc struct {
	File       string  `yaml:"file"`
	IsPurchase bool    `yaml:"is_purchase"`
	Error      string  `yaml:"error,omitempty"`
	Candidate  *result `yaml:"candidate,omitempty"`
}

type result struct {
	Name               string   `yaml:"name"`
	Category           string   `yaml:"category"`
	Vendor             string   `yaml:"vendor"`
	PurchaseDate       string   `yaml:"purchase_date"`
	PurchaseDateSource string   `yaml:"purchase_date_source"`
	WarrantyEndDate    string   `yaml:"warranty_end_date"`
	Price              *float64 `yaml:"price,omitempty"`
	Currency           string   `yaml:"currency"`
	OrderNumber        *string  `yaml:"order_number,omitempty"`
	WarrantyInfo       *string  `yaml:"warranty_info,omitempty"`
	WarrantyHintMonths *int     `yaml:"warranty_hint_months,omitempty"`
	Description        string   `yaml:"description"`
	Confidence         int      `yaml:"confidence"`
}

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if err := run(flag.Args(), os.Stdin, os.Stdout, openStore); err != nil {
		fmt.Fprintf(os.Stderr, "warrantyctl: %v\n", err)
		os.Exit(1)
	}
}

// secretStore is the part of credential.Store used here
type secretStore interface {
	Set(key, value string) error
	Delete(key string) error
}

func openStore() (secretStore, error) {
	return credential.Open()
}

func run(args []string, stdin io.Reader, stdout io.Writer, store func() (secretStore, error)) error {
	if len(args) == 0 {
		return errors.New("missing command\n" + usage)
	}

	switch args[0] {
	case "preview":
		if len(args) < 2 {
			return errors.New("preview needs at least one .eml file or directory")
		}
		return preview(context.Background(), purchase.New(), args[1:], stdout)

	case "set-password":
		if len(args) != 2 {
			return errors.New("set-password needs exactly one username")
		}
		s, err := store()
		if err != nil {
			return err
		}
		return setPassword(s, args[1], stdin, stdout)

	case "delete-password":
		if len(args) != 2 {
			return errors.New("delete-password needs exactly one username")
		}
		s, err := store()
		if err != nil {
			return err
		}
		if err := s.Delete(credential.IMAPKey(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed IMAP password for %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// preview writes one YAML document per file. Directories are expanded to
// the .eml files below them. Unreadable files are reported inline so the
// remaining files are still shown.
func preview(ctx context.Context, p *purchase.Parser, paths []string, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			if err := previewFile(p, enc, path, filepath.Base(path)); err != nil {
				return err
			}
			continue
		}

		s := scanner.NewScanner(path)
		err = s.ScanWithCallback(ctx, func(rel string, _, _ int) error {
			file, err := s.Resolve(rel)
			if err != nil {
				return err
			}
			return previewFile(p, enc, file, rel)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func previewFile(p *purchase.Parser, enc *yaml.Encoder, file, name string) error {
	doc := previewDoc{File: name}

	email, err := parser.ParseEMLFile(file)
	if err != nil {
		doc.Error = err.Error()
	} else if c := p.Parse(email.RawEmail(file)); c != nil {
		doc.IsPurchase = true
		doc.Candidate = newResult(c)
	}

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func newResult(c *purchase.Candidate) *result {
	return &result{
		Name:               c.DisplayName(),
		Category:           string(c.Category),
		Vendor:             c.DisplayVendor(),
		PurchaseDate:       c.PurchaseDate.Format("2006-01-02"),
		PurchaseDateSource: string(c.PurchaseDateSource),
		WarrantyEndDate:    c.WarrantyEndDate.Format("2006-01-02"),
		Price:              c.Price,
		Currency:           c.Currency,
		OrderNumber:        c.OrderNumber,
		WarrantyInfo:       c.WarrantyInfo,
		WarrantyHintMonths: c.WarrantyHintMonths,
		Description:        c.Description(),
		Confidence:         c.Confidence,
	}
}

// setPassword reads the first line of r as the password
func setPassword(s secretStore, username string, r io.Reader, w io.Writer) error {
	lines := bufio.NewScanner(r)
	if !lines.Scan() {
		if err := lines.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		return errors.New("no password on stdin")
	}

	password := strings.TrimRight(lines.Text(), "\r")
	if password == "" {
		return errors.New("empty password")
	}
	if err := s.Set(credential.IMAPKey(username), password); err != nil {
		return err
	}

	fmt.Fprintf(w, "Stored IMAP password for %s\n", username)
	return nil
}
