package repodata

import (
	"encoding/xml"
	"os"

	"github.com/openmandriva/createmd/internal/models"
)

// RepoMd mirrors the parts of repomd.xml the reconciler needs.
type RepoMd struct {
	XMLName  xml.Name     `xml:"repomd"`
	Revision int64        `xml:"revision"`
	Data     []RepoMdData `xml:"data"`
}

// RepoMdData is one <data> artifact reference.
type RepoMdData struct {
	Type         string         `xml:"type,attr"`
	Checksum     RepoMdChecksum `xml:"checksum"`
	OpenChecksum RepoMdChecksum `xml:"open-checksum"`
	Location     RepoMdLocation `xml:"location"`
	Timestamp    int64          `xml:"timestamp"`
	Size         int64          `xml:"size"`
	OpenSize     int64          `xml:"open-size"`
}

type RepoMdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type RepoMdLocation struct {
	Href string `xml:"href,attr"`
}

// ParseRepoMd reads and unmarshals a repomd.xml file.
func ParseRepoMd(path string) (*RepoMd, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	var md RepoMd
	if err := xml.Unmarshal(data, &md); err != nil {
		return nil, &models.MdError{Type: models.ErrXml, Path: path, Err: err}
	}
	return &md, nil
}

// DataOfType returns the artifact entry of the given type, or nil.
func (m *RepoMd) DataOfType(t string) *RepoMdData {
	for i := range m.Data {
		if m.Data[i].Type == t {
			return &m.Data[i]
		}
	}
	return nil
}
