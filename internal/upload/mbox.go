package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"

	"github.com/emersion/go-mbox"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"vetdesk/internal/pkg/logger"
)

// addressHeaders are the headers whose addresses are collected.
var addressHeaders = []string{"From", "Reply-To", "To", "Cc"}

// ReadMailbox collects the addresses found in the headers of every message
// of an mbox file, in order of first appearance. Messages whose headers
// cannot be parsed are skipped. No deduplication happens here.
func ReadMailbox(r io.Reader) ([]string, error) {
	parser := &mail.AddressParser{WordDecoder: &mime.WordDecoder{CharsetReader: charsetReader}}
	reader := mbox.NewReader(r)

	var emails []string
	for i := 0; ; i++ {
		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return emails, fmt.Errorf("read message %d: %w", i, err)
		}

		msg, err := mail.ReadMessage(msgReader)
		if err != nil {
			logger.Debug("skipping unparsable message", "index", i, "error", err)
			continue
		}

		for _, h := range addressHeaders {
			v := msg.Header.Get(h)
			if v == "" {
				continue
			}
			list, err := parser.ParseList(v)
			if err != nil {
				logger.Debug("skipping malformed header", "index", i, "header", h, "error", err)
				continue
			}
			for _, a := range list {
				emails = append(emails, a.Address)
			}
		}
	}
	return emails, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if charset == "" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
