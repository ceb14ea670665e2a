package packager

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"mangadrop/internal/textutil"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

var opfTemplate = template.Must(template.New("opf").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="book-id">urn:uuid:{{.ID}}</dc:identifier>
    <dc:title>{{html .Title}}</dc:title>
    <dc:creator>{{html .Author}}</dc:creator>
    <dc:language>en</dc:language>
    <meta property="dcterms:modified">{{.Modified}}</meta>
    <meta name="cover" content="img-0"/>
    <meta name="fixed-layout" content="true"/>
    <meta name="book-type" content="comic"/>
    <meta name="original-resolution" content="{{.Width}}x{{.Height}}"/>
    <meta property="rendition:layout">pre-paginated</meta>
    <meta property="rendition:spread">none</meta>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
{{- range .Pages}}
    <item id="img-{{.Index}}" href="{{.Image}}" media-type="{{.MediaType}}"{{if eq .Index 0}} properties="cover-image"{{end}}/>
    <item id="page-{{.Index}}" href="{{.Doc}}" media-type="application/xhtml+xml"/>
{{- end}}
  </manifest>
  <spine toc="ncx">
{{- range .Pages}}
    <itemref idref="page-{{.Index}}"/>
{{- end}}
  </spine>
</package>
`))

var pageTemplate = template.Must(template.New("page").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>{{html .Title}}</title>
  <meta name="viewport" content="width={{.Width}}, height={{.Height}}"/>
  <style>body{margin:0;padding:0}img{width:100%;height:100%;display:block}</style>
</head>
<body><img src="{{.Image}}" alt=""/></body>
</html>
`))

var navTemplate = template.Must(template.New("nav").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>{{html .Title}}</title></head>
<body>
  <nav epub:type="toc"><ol><li><a href="{{(index .Pages 0).Doc}}">{{html .Title}}</a></li></ol></nav>
</body>
</html>
`))

var ncxTemplate = template.Must(template.New("ncx").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="urn:uuid:{{.ID}}"/></head>
  <docTitle><text>{{html .Title}}</text></docTitle>
  <navMap>
    <navPoint id="start" playOrder="1"><navLabel><text>{{html .Title}}</text></navLabel><content src="{{(index .Pages 0).Doc}}"/></navPoint>
  </navMap>
</ncx>
`))

type epubPage struct {
	Index     int
	Image     string
	Doc       string
	MediaType string
	Title     string
	Width     int
	Height    int
	source    string
}

type epubBook struct {
	ID       string
	Title    string
	Author   string
	Modified string
	Width    int
	Height   int
	Pages    []epubPage
}

// EPUBBuilder writes fixed-layout comic EPUBs, one image per page.
type EPUBBuilder struct {
	now func() time.Time
}

// NewEPUBBuilder returns a builder stamped with the current time.
func NewEPUBBuilder() *EPUBBuilder {
	return &EPUBBuilder{now: time.Now}
}

// Build writes images, in order, to an EPUB at path. The first image is the cover.
func (b *EPUBBuilder) Build(path string, images []string, meta Metadata) error {
	if err := mustNonEmpty(meta.Title, "title"); err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images")
	}

	book := epubBook{
		ID:       uuid.NewString(),
		Title:    textutil.EbookTitle(meta.Title),
		Author:   strings.TrimSpace(meta.Author),
		Modified: b.now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	for i, src := range images {
		width, height, err := imageSize(src)
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(src))
		mediaType := "image/png"
		if ext == ".jpg" || ext == ".jpeg" {
			mediaType = "image/jpeg"
		} else {
			ext = ".png"
		}
		book.Pages = append(book.Pages, epubPage{
			Index:     i,
			Image:     fmt.Sprintf("images/%04d%s", i, ext),
			Doc:       fmt.Sprintf("page-%04d.xhtml", i),
			MediaType: mediaType,
			Title:     book.Title,
			Width:     width,
			Height:    height,
			source:    src,
		})
		if width > book.Width {
			book.Width = width
		}
		if height > book.Height {
			book.Height = height
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeEPUB(out, book); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func writeEPUB(w io.Writer, book epubBook) error {
	zw := zip.NewWriter(w)

	// mimetype must be the first entry and stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(mt, "application/epub+zip"); err != nil {
		return err
	}

	if err := writeZipString(zw, "META-INF/container.xml", containerXML); err != nil {
		return err
	}
	for name, tmpl := range map[string]*template.Template{
		"OEBPS/content.opf": opfTemplate,
		"OEBPS/nav.xhtml":   navTemplate,
		"OEBPS/toc.ncx":     ncxTemplate,
	} {
		if err := writeZipTemplate(zw, name, tmpl, book); err != nil {
			return err
		}
	}
	for _, page := range book.Pages {
		if err := writeZipTemplate(zw, "OEBPS/"+page.Doc, pageTemplate, page); err != nil {
			return err
		}
		if err := writeZipFile(zw, "OEBPS/"+page.Image, page.source); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeZipString(zw *zip.Writer, name, content string) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func writeZipTemplate(zw *zip.Writer, name string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return writeZipString(zw, name, buf.String())
}

func writeZipFile(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	// Images are already compressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read image header %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}
