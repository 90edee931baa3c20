package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/ocr"
)

type options struct {
	currency string
	locale   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "menuscan",
		Short:         "Turn menu photos and OCR text into structured menus",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.currency, "currency", menu.DefaultCurrency, "ISO 4217 currency of the menu")
	root.PersistentFlags().StringVar(&opts.locale, "locale", "de-DE", "menu language as BCP 47 tag")

	root.AddCommand(newStructureCmd(opts), newRecognizeCmd(opts))
	return root
}

func newStructureCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "structure [file]",
		Short: "Structure raw OCR text read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 && args[0] != "-" {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			m := menu.NewStructurer(opts.currency, opts.locale).Structure(ocr.CleanText(string(raw)))
			return writeJSON(cmd.OutOrStdout(), m)
		},
	}
}

func newRecognizeCmd(opts *options) *cobra.Command {
	var (
		method    string
		languages string
		timeout   time.Duration
		rawOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Run OCR on a menu photo and print the structured menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := ocr.ParseMethod(method)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := ocr.ValidateUpload(filepath.Base(args[0]), data, ocr.DefaultMaxUploadBytes); err != nil {
				return err
			}

			langs := strings.Split(languages, ",")
			var local, remote ocr.Recognizer
			local = ocr.NewTesseract(langs)
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				remote = ocr.NewGemini(key, os.Getenv("GEMINI_MODEL"))
			}
			rec, err := ocr.ForMethod(m, local, remote)
			if err != nil {
				return err
			}

			img, err := ocr.PrepareImage(data)
			if err != nil {
				return err
			}
			img.Languages = langs

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			stderr := cmd.ErrOrStderr()
			out, err := rec.Recognize(ctx, img, func(p int) {
				fmt.Fprintf(stderr, "\r%s %3d%%", rec.Name(), p)
			})
			fmt.Fprintln(stderr)
			if err != nil {
				return fmt.Errorf("%w: %v", ocr.ErrRecognitionFailed, err)
			}
			fmt.Fprintf(stderr, "engine=%s confidence=%.2f\n", out.Engine, out.Confidence)

			if rawOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out.Text)
				return err
			}
			structured := menu.NewStructurer(opts.currency, opts.locale).Structure(ocr.CleanText(out.Text))
			return writeJSON(cmd.OutOrStdout(), structured)
		},
	}
	cmd.Flags().StringVar(&method, "method", string(ocr.MethodClient), "CLIENT, SERVER or BOTH")
	cmd.Flags().StringVar(&languages, "lang", "deu,eng", "tesseract languages")
	cmd.Flags().DurationVar(&timeout, "timeout", ocr.DefaultTimeout, "give up after this long")
	cmd.Flags().BoolVar(&rawOnly, "raw", false, "print recognized text instead of the structured menu")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
