// Package mailparse turns raw RFC 5322 messages into the EmailRecord the
// analysis engine consumes. It lives outside the engine proper: the engine
// only ever sees already-decoded plain text.
package mailparse

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"golang.org/x/text/encoding/htmlindex"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ReadEmail parses a raw email message into an EmailRecord
func ReadEmail(r io.Reader) (*core.EmailRecord, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	sender, displayName := parseFrom(decodeHeader(msg.Header.Get("From")))
	subject := decodeHeader(msg.Header.Get("Subject"))

	body, attachments, err := extractContent(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read email body: %w", err)
	}

	return &core.EmailRecord{
		Sender:      sender,
		DisplayName: displayName,
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
		URLs:        urlPattern.FindAllString(body, -1),
	}, nil
}

// parseFrom splits a From header into address and display name, falling
// back to the raw header when it does not parse
func parseFrom(from string) (string, string) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.TrimSpace(from), ""
	}
	return addr.Address, addr.Name
}

// decodeHeader decodes MIME encoded-words, tolerating unknown charsets
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{CharsetReader: charsetReader}
	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader resolves non-UTF-8 charsets via the WHATWG encoding index
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// extractContent pulls the plain-text body and the attachment list out of
// a possibly multipart message
func extractContent(contentType, transferEncoding string, body io.Reader) (string, []core.Attachment, error) {
	if contentType == "" {
		text, err := readAll(body, transferEncoding, "")
		return text, nil, err
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		charset := ""
		if err == nil {
			charset = params["charset"]
		}
		text, readErr := readAll(body, transferEncoding, charset)
		return text, nil, readErr
	}

	boundary, ok := params["boundary"]
	if !ok {
		text, err := readAll(body, transferEncoding, "")
		return text, nil, err
	}

	var textParts []string
	var attachments []core.Attachment

	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			partType = "text/plain"
			partParams = nil
		}

		if filename := part.FileName(); filename != "" {
			size, _ := io.Copy(io.Discard, part)
			attachments = append(attachments, core.Attachment{
				Filename: decodeHeader(filename),
				MimeType: partType,
				Size:     size,
			})
			continue
		}

		switch {
		case strings.HasPrefix(partType, "multipart/"):
			nested, nestedAttachments, err := extractContent(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil {
				return "", nil, err
			}
			if nested != "" {
				textParts = append(textParts, nested)
			}
			attachments = append(attachments, nestedAttachments...)
		case partType == "text/plain":
			text, err := readAll(part, part.Header.Get("Content-Transfer-Encoding"), partParams["charset"])
			if err != nil {
				return "", nil, err
			}
			textParts = append(textParts, text)
		default:
			// Skip text/html and other alternatives; the engine wants the
			// plain-text rendition
			io.Copy(io.Discard, part)
		}
	}

	return strings.Join(textParts, "\n"), attachments, nil
}

// readAll drains a reader applying the transfer encoding and charset
func readAll(r io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}

	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		if decoded, err := charsetReader(charset, r); err == nil {
			r = decoded
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
