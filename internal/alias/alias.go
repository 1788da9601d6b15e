package alias

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

const (
	headerSize   = 8
	recordV2Size = 142
	recordV3Size = 50

	volumeNameFieldLen = 28
	fileNameFieldLen   = 64
	reservedV2Len      = 10
	reservedV3Len      = 14

	endTag int16 = -1
)

// Extension tags following the fixed record
const (
	tagCarbonFolderName        int16 = 0
	tagCNIDPath                int16 = 1
	tagCarbonPath              int16 = 2
	tagAppleShareZone          int16 = 3
	tagAppleShareServerName    int16 = 4
	tagAppleShareUsername      int16 = 5
	tagDriverName              int16 = 6
	tagNetworkMountInfo        int16 = 9
	tagDialupInfo              int16 = 10
	tagUnicodeFilename         int16 = 14
	tagUnicodeVolumeName       int16 = 15
	tagHighResVolumeCreation   int16 = 16
	tagHighResCreation         int16 = 17
	tagPOSIXPath               int16 = 18
	tagPOSIXPathToMountPoint   int16 = 19
	tagRecursiveDiskImageAlias int16 = 20
	tagUserHomeLengthPrefix    int16 = 21
)

// Alias is a classic Mac OS alias record
type Alias struct {
	AppInfo      types.FourCC      `json:"app_info" yaml:"app_info"`
	Version      int16             `json:"version" yaml:"version"`
	Volume       VolumeInfo        `json:"volume" yaml:"volume"`
	Target       TargetInfo        `json:"target" yaml:"target"`
	Unrecognised []UnrecognisedTag `json:"unrecognised,omitempty" yaml:"unrecognised,omitempty"`
}

// VolumeInfo describes the volume holding the target. Empty strings and
// nil pointers mean the optional field is absent.
type VolumeInfo struct {
	Name             string          `json:"name" yaml:"name"`
	CreationDate     time.Time       `json:"creation_date" yaml:"creation_date"`
	FSType           FileSystemType  `json:"fs_type" yaml:"fs_type"`
	DiskType         VolumeType      `json:"disk_type" yaml:"disk_type"`
	AttributeFlags   uint32          `json:"attribute_flags" yaml:"attribute_flags"`
	FSID             string          `json:"fs_id,omitempty" yaml:"fs_id,omitempty"`
	AppleShare       *AppleShareInfo `json:"appleshare,omitempty" yaml:"appleshare,omitempty"`
	DriverName       string          `json:"driver_name,omitempty" yaml:"driver_name,omitempty"`
	POSIXPath        string          `json:"posix_path,omitempty" yaml:"posix_path,omitempty"`
	DiskImageAlias   *Alias          `json:"disk_image_alias,omitempty" yaml:"disk_image_alias,omitempty"`
	DialupInfo       types.Blob      `json:"dialup_info,omitempty" yaml:"dialup_info,omitempty"`
	NetworkMountInfo types.Blob      `json:"network_mount_info,omitempty" yaml:"network_mount_info,omitempty"`
}

// AppleShareInfo locates a target reached over AppleShare
type AppleShareInfo struct {
	Zone   string `json:"zone,omitempty" yaml:"zone,omitempty"`
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	User   string `json:"user,omitempty" yaml:"user,omitempty"`
}

// TargetInfo describes the aliased entry.
//
// POSIXPath is relative to the volume root and may or may not start with a
// slash. UserHomePrefixLen, when set, is the number of folders above the
// user's home folder.
type TargetInfo struct {
	Name              string       `json:"name" yaml:"name"`
	Kind              Kind         `json:"kind" yaml:"kind"`
	FolderCNID        uint32       `json:"folder_cnid" yaml:"folder_cnid"`
	CNID              uint32       `json:"cnid" yaml:"cnid"`
	CreationDate      time.Time    `json:"creation_date" yaml:"creation_date"`
	CreatorCode       types.FourCC `json:"creator_code,omitempty" yaml:"creator_code,omitempty"`
	TypeCode          types.FourCC `json:"type_code,omitempty" yaml:"type_code,omitempty"`
	LevelsFrom        int16        `json:"levels_from" yaml:"levels_from"`
	LevelsTo          int16        `json:"levels_to" yaml:"levels_to"`
	FolderName        string       `json:"folder_name,omitempty" yaml:"folder_name,omitempty"`
	CNIDPath          []uint32     `json:"cnid_path,omitempty" yaml:"cnid_path,omitempty"`
	CarbonPath        string       `json:"carbon_path,omitempty" yaml:"carbon_path,omitempty"`
	POSIXPath         string       `json:"posix_path,omitempty" yaml:"posix_path,omitempty"`
	UserHomePrefixLen *int16       `json:"user_home_prefix_len,omitempty" yaml:"user_home_prefix_len,omitempty"`
}

// UnrecognisedTag is an extension the decoder did not understand, kept
// so that it is written back unchanged.
type UnrecognisedTag struct {
	Tag  int16      `json:"tag" yaml:"tag"`
	Data types.Blob `json:"data" yaml:"data"`
}

func recordSize(version int16) (int, error) {
	switch version {
	case 2:
		return recordV2Size, nil
	case 3:
		return recordV3Size, nil
	}
	return 0, fmt.Errorf("%w: alias version %d", types.ErrUnsupported, version)
}

func paddedTagSize(dataLen int) int {
	size := 4 + dataLen
	if size%2 != 0 {
		size++
	}
	return size
}

// CalculateSize returns the exact encoded size of the alias
func (a *Alias) CalculateSize() int {
	size := headerSize
	if a.Version == 3 {
		size += recordV3Size
	} else {
		size += recordV2Size
	}

	t, v := &a.Target, &a.Volume
	if t.FolderName != "" {
		size += paddedTagSize(len(t.FolderName))
	}
	size += 2 * (4 + 8) // high resolution dates
	if t.CNIDPath != nil {
		size += 4 + 4*len(t.CNIDPath)
	}
	if t.CarbonPath != "" {
		size += paddedTagSize(len(t.CarbonPath))
	}
	if v.AppleShare != nil {
		for _, s := range []string{v.AppleShare.Zone, v.AppleShare.Server, v.AppleShare.User} {
			if s != "" {
				size += paddedTagSize(len(s))
			}
		}
	}
	if v.DriverName != "" {
		size += paddedTagSize(len(v.DriverName))
	}
	if v.NetworkMountInfo != nil {
		size += paddedTagSize(len(v.NetworkMountInfo))
	}
	if v.DialupInfo != nil {
		size += paddedTagSize(len(v.DialupInfo))
	}
	size += 6 + 2*types.UTF16Len(t.Name)
	size += 6 + 2*types.UTF16Len(v.Name)
	if t.POSIXPath != "" {
		size += paddedTagSize(len(t.POSIXPath))
	}
	if v.POSIXPath != "" {
		size += paddedTagSize(len(v.POSIXPath))
	}
	if v.DiskImageAlias != nil {
		size += paddedTagSize(v.DiskImageAlias.CalculateSize())
	}
	if t.UserHomePrefixLen != nil {
		size += 6
	}
	for _, u := range a.Unrecognised {
		size += paddedTagSize(len(u.Data))
	}
	return size + 4 // end marker
}

// Encode serialises the alias. Extensions are written in the order Finder uses.
func (a *Alias) Encode() (types.Blob, error) {
	if _, err := recordSize(a.Version); err != nil {
		return nil, err
	}
	w := types.NewBufferWriter(binary.BigEndian)

	if err := w.WriteFourCC(fourCCOrZero(a.AppInfo)); err != nil {
		return nil, err
	}
	// record size is patched once everything is written
	if err := w.WriteUint16(0); err != nil {
		return nil, err
	}
	if err := w.WriteInt16(a.Version); err != nil {
		return nil, err
	}

	var err error
	if a.Version == 2 {
		err = a.writeRecordV2(w)
	} else {
		err = a.writeRecordV3(w)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write alias record: %w", err)
	}
	if err := a.writeExtensions(w); err != nil {
		return nil, fmt.Errorf("failed to write alias extensions: %w", err)
	}

	total := w.Position()
	if total > 0xFFFF {
		return nil, fmt.Errorf("%w: alias of %d bytes exceeds the record size field", types.ErrOutOfRange, total)
	}
	if err := w.Seek(4); err != nil {
		return nil, err
	}
	if err := w.WriteUint16(uint16(total)); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func fourCCOrZero(c types.FourCC) types.FourCC {
	if c == "" {
		return types.ZeroFourCC
	}
	return c
}

// fixedString truncates or NUL pads s to n bytes
func fixedString(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("\x00", n-len(s))
}

// truncateUTF8 shortens s to at most n bytes without splitting a character
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (a *Alias) writeRecordV2(w *types.BinaryWriter) error {
	t, v := &a.Target, &a.Volume
	steps := []func() error{
		func() error { return w.WriteInt16(int16(t.Kind)) },
		func() error {
			name := truncateUTF8(strings.ReplaceAll(v.Name, ":", "/"), volumeNameFieldLen-1)
			return w.WritePascalString(name, volumeNameFieldLen)
		},
		func() error { return w.WriteUint32(types.MacTimeToLowRes(v.CreationDate)) },
		func() error { return w.WriteString(fixedString(string(v.FSType), 2)) },
		func() error { return w.WriteInt16(int16(v.DiskType)) },
		func() error { return w.WriteUint32(t.FolderCNID) },
		func() error {
			name := truncateUTF8(strings.ReplaceAll(t.Name, ":", "/"), fileNameFieldLen-1)
			return w.WritePascalString(name, fileNameFieldLen)
		},
		func() error { return w.WriteUint32(t.CNID) },
		func() error { return w.WriteUint32(types.MacTimeToLowRes(t.CreationDate)) },
		func() error { return w.WriteFourCC(fourCCOrZero(t.CreatorCode)) },
		func() error { return w.WriteFourCC(fourCCOrZero(t.TypeCode)) },
		func() error { return w.WriteInt16(t.LevelsFrom) },
		func() error { return w.WriteInt16(t.LevelsTo) },
		func() error { return w.WriteUint32(v.AttributeFlags) },
		func() error { return w.WriteString(fixedString(v.FSID, 2)) },
		func() error { return w.WriteZeros(reservedV2Len) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (a *Alias) writeRecordV3(w *types.BinaryWriter) error {
	t, v := &a.Target, &a.Volume
	steps := []func() error{
		func() error { return w.WriteInt16(int16(t.Kind)) },
		func() error { return w.WriteInt64(types.MacTimeToHiRes(v.CreationDate)) },
		func() error { return w.WriteString(fixedString(string(v.FSType), 4)) },
		func() error { return w.WriteInt16(int16(v.DiskType)) },
		func() error { return w.WriteUint32(t.FolderCNID) },
		func() error { return w.WriteUint32(t.CNID) },
		func() error { return w.WriteInt64(types.MacTimeToHiRes(t.CreationDate)) },
		func() error { return w.WriteUint32(v.AttributeFlags) },
		func() error { return w.WriteZeros(reservedV3Len) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func writeTag(w *types.BinaryWriter, tag int16, data []byte) error {
	if len(data) > 0xFFFF {
		return fmt.Errorf("%w: tag %d data of %d bytes", types.ErrOutOfRange, tag, len(data))
	}
	if err := w.WriteInt16(tag); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(data))); err != nil {
		return err
	}
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	return w.Align(2)
}

func writeHighResTag(w *types.BinaryWriter, tag int16, t time.Time) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(types.MacTimeToHiRes(t)))
	return writeTag(w, tag, b[:])
}

func writeUnicodeTag(w *types.BinaryWriter, tag int16, s string) error {
	encoded, err := types.EncodeUTF16BE(s)
	if err != nil {
		return err
	}
	data := make([]byte, 2, 2+len(encoded))
	binary.BigEndian.PutUint16(data, uint16(len(encoded)/2))
	return writeTag(w, tag, append(data, encoded...))
}

func (a *Alias) writeExtensions(w *types.BinaryWriter) error {
	t, v := &a.Target, &a.Volume

	if t.FolderName != "" {
		if err := writeTag(w, tagCarbonFolderName, []byte(strings.ReplaceAll(t.FolderName, ":", "/"))); err != nil {
			return err
		}
	}
	if err := writeHighResTag(w, tagHighResVolumeCreation, v.CreationDate); err != nil {
		return err
	}
	if err := writeHighResTag(w, tagHighResCreation, t.CreationDate); err != nil {
		return err
	}
	if t.CNIDPath != nil {
		data := make([]byte, 4*len(t.CNIDPath))
		for i, cnid := range t.CNIDPath {
			binary.BigEndian.PutUint32(data[4*i:], cnid)
		}
		if err := writeTag(w, tagCNIDPath, data); err != nil {
			return err
		}
	}
	if t.CarbonPath != "" {
		if err := writeTag(w, tagCarbonPath, []byte(t.CarbonPath)); err != nil {
			return err
		}
	}
	if as := v.AppleShare; as != nil {
		for _, f := range []struct {
			tag   int16
			value string
		}{
			{tagAppleShareZone, as.Zone},
			{tagAppleShareServerName, as.Server},
			{tagAppleShareUsername, as.User},
		} {
			if f.value == "" {
				continue
			}
			if err := writeTag(w, f.tag, []byte(f.value)); err != nil {
				return err
			}
		}
	}
	if v.DriverName != "" {
		if err := writeTag(w, tagDriverName, []byte(v.DriverName)); err != nil {
			return err
		}
	}
	if v.NetworkMountInfo != nil {
		if err := writeTag(w, tagNetworkMountInfo, v.NetworkMountInfo); err != nil {
			return err
		}
	}
	if v.DialupInfo != nil {
		if err := writeTag(w, tagDialupInfo, v.DialupInfo); err != nil {
			return err
		}
	}
	if err := writeUnicodeTag(w, tagUnicodeFilename, t.Name); err != nil {
		return err
	}
	if err := writeUnicodeTag(w, tagUnicodeVolumeName, v.Name); err != nil {
		return err
	}
	if t.POSIXPath != "" {
		if err := writeTag(w, tagPOSIXPath, []byte(t.POSIXPath)); err != nil {
			return err
		}
	}
	if v.POSIXPath != "" {
		if err := writeTag(w, tagPOSIXPathToMountPoint, []byte(v.POSIXPath)); err != nil {
			return err
		}
	}
	if v.DiskImageAlias != nil {
		nested, err := v.DiskImageAlias.Encode()
		if err != nil {
			return fmt.Errorf("failed to encode disk image alias: %w", err)
		}
		if err := writeTag(w, tagRecursiveDiskImageAlias, nested); err != nil {
			return err
		}
	}
	if t.UserHomePrefixLen != nil {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(*t.UserHomePrefixLen))
		if err := writeTag(w, tagUserHomeLengthPrefix, b[:]); err != nil {
			return err
		}
	}
	for _, u := range a.Unrecognised {
		if err := writeTag(w, u.Tag, u.Data); err != nil {
			return err
		}
	}

	if err := w.WriteInt16(endTag); err != nil {
		return err
	}
	return w.WriteUint16(0)
}

// Decode parses an alias record
func Decode(data []byte) (*Alias, error) {
	r := types.NewBinaryReader(data, binary.BigEndian)
	appInfo, err := r.ReadFourCC()
	if err != nil {
		return nil, fmt.Errorf("%w: alias header truncated", types.ErrFormat)
	}
	recSize, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: alias header truncated", types.ErrFormat)
	}
	version, err := r.ReadInt16()
	if err != nil {
		return nil, fmt.Errorf("%w: alias header truncated", types.ErrFormat)
	}
	fixed, err := recordSize(version)
	if err != nil {
		return nil, err
	}
	if int(recSize) < headerSize+fixed {
		return nil, fmt.Errorf("%w: incorrect alias length %d", types.ErrFormat, recSize)
	}
	if int(recSize) > len(data) {
		return nil, fmt.Errorf("%w: alias declares %d bytes but has %d", types.ErrFormat, recSize, len(data))
	}
	r = types.NewBinaryReader(data[:recSize], binary.BigEndian)
	if err := r.Seek(headerSize); err != nil {
		return nil, err
	}

	a := &Alias{AppInfo: zeroToEmpty(appInfo), Version: version}
	if version == 2 {
		err = a.readRecordV2(r)
	} else {
		err = a.readRecordV3(r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read alias record: %w", err)
	}
	if err := a.readExtensions(r); err != nil {
		return nil, fmt.Errorf("failed to read alias extensions: %w", err)
	}
	return a, nil
}

func zeroToEmpty(c types.FourCC) types.FourCC {
	if c == types.ZeroFourCC {
		return ""
	}
	return c
}

func (a *Alias) readRecordV2(r *types.BinaryReader) error {
	t, v := &a.Target, &a.Volume
	kind, err := r.ReadInt16()
	if err != nil {
		return err
	}
	if t.Kind, err = parseKind(kind); err != nil {
		return err
	}
	// the pascal volume name is superseded by the Unicode volume name tag
	if _, err := r.ReadPascalString(volumeNameFieldLen); err != nil {
		return err
	}
	volDate, err := r.ReadUint32()
	if err != nil {
		return err
	}
	v.CreationDate = types.MacTimeFromLowRes(volDate)
	fsType, err := r.ReadString(2)
	if err != nil {
		return err
	}
	v.FSType = parseFileSystemType(fsType)
	diskType, err := r.ReadInt16()
	if err != nil {
		return err
	}
	if v.DiskType, err = parseVolumeType(diskType); err != nil {
		return err
	}
	if t.FolderCNID, err = r.ReadUint32(); err != nil {
		return err
	}
	name, err := r.ReadPascalString(fileNameFieldLen)
	if err != nil {
		return err
	}
	t.Name = strings.ReplaceAll(name, "/", ":")
	if t.CNID, err = r.ReadUint32(); err != nil {
		return err
	}
	created, err := r.ReadUint32()
	if err != nil {
		return err
	}
	t.CreationDate = types.MacTimeFromLowRes(created)
	creator, err := r.ReadFourCC()
	if err != nil {
		return err
	}
	t.CreatorCode = zeroToEmpty(creator)
	typeCode, err := r.ReadFourCC()
	if err != nil {
		return err
	}
	t.TypeCode = zeroToEmpty(typeCode)
	if t.LevelsFrom, err = r.ReadInt16(); err != nil {
		return err
	}
	if t.LevelsTo, err = r.ReadInt16(); err != nil {
		return err
	}
	if v.AttributeFlags, err = r.ReadUint32(); err != nil {
		return err
	}
	fsID, err := r.ReadString(2)
	if err != nil {
		return err
	}
	v.FSID = strings.TrimRight(fsID, "\x00")
	return r.Skip(reservedV2Len)
}

func (a *Alias) readRecordV3(r *types.BinaryReader) error {
	t, v := &a.Target, &a.Volume
	kind, err := r.ReadInt16()
	if err != nil {
		return err
	}
	if t.Kind, err = parseKind(kind); err != nil {
		return err
	}
	volDate, err := r.ReadInt64()
	if err != nil {
		return err
	}
	v.CreationDate = types.MacTimeFromHiRes(volDate)
	fsType, err := r.ReadString(4)
	if err != nil {
		return err
	}
	v.FSType = parseFileSystemType(fsType)
	diskType, err := r.ReadInt16()
	if err != nil {
		return err
	}
	if v.DiskType, err = parseVolumeType(diskType); err != nil {
		return err
	}
	if t.FolderCNID, err = r.ReadUint32(); err != nil {
		return err
	}
	if t.CNID, err = r.ReadUint32(); err != nil {
		return err
	}
	created, err := r.ReadInt64()
	if err != nil {
		return err
	}
	t.CreationDate = types.MacTimeFromHiRes(created)
	if v.AttributeFlags, err = r.ReadUint32(); err != nil {
		return err
	}
	// version 3 records carry no level counts
	t.LevelsFrom, t.LevelsTo = -1, -1
	return r.Skip(reservedV3Len)
}

func (a *Alias) readExtensions(r *types.BinaryReader) error {
	t, v := &a.Target, &a.Volume
	appleShare := func() *AppleShareInfo {
		if v.AppleShare == nil {
			v.AppleShare = &AppleShareInfo{}
		}
		return v.AppleShare
	}

	for {
		tag, err := r.ReadInt16()
		if err != nil {
			return fmt.Errorf("%w: alias ends without an end marker", types.ErrFormat)
		}
		if tag == endTag {
			return nil
		}
		length, err := r.ReadUint16()
		if err != nil {
			return err
		}
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return fmt.Errorf("%w: tag %d overruns the alias", types.ErrFormat, tag)
		}

		switch tag {
		case tagCarbonFolderName:
			t.FolderName = strings.ReplaceAll(string(data), "/", ":")
		case tagCNIDPath:
			if len(data)%4 != 0 {
				return fmt.Errorf("%w: CNID path of %d bytes", types.ErrFormat, len(data))
			}
			t.CNIDPath = make([]uint32, len(data)/4)
			for i := range t.CNIDPath {
				t.CNIDPath[i] = binary.BigEndian.Uint32(data[4*i:])
			}
		case tagCarbonPath:
			t.CarbonPath = string(data)
		case tagAppleShareZone:
			appleShare().Zone = string(data)
		case tagAppleShareServerName:
			appleShare().Server = string(data)
		case tagAppleShareUsername:
			appleShare().User = string(data)
		case tagDriverName:
			v.DriverName = string(data)
		case tagNetworkMountInfo:
			v.NetworkMountInfo = data
		case tagDialupInfo:
			v.DialupInfo = data
		case tagUnicodeFilename, tagUnicodeVolumeName:
			if len(data) < 2 {
				return fmt.Errorf("%w: Unicode name tag of %d bytes", types.ErrFormat, len(data))
			}
			s, err := types.DecodeUTF16BE(data[2:])
			if err != nil {
				return err
			}
			if tag == tagUnicodeFilename {
				t.Name = s
			} else {
				v.Name = s
			}
		case tagHighResVolumeCreation, tagHighResCreation:
			if len(data) != 8 {
				return fmt.Errorf("%w: date tag of %d bytes", types.ErrFormat, len(data))
			}
			date := types.MacTimeFromHiRes(int64(binary.BigEndian.Uint64(data)))
			if tag == tagHighResVolumeCreation {
				v.CreationDate = date
			} else {
				t.CreationDate = date
			}
		case tagPOSIXPath:
			t.POSIXPath = string(data)
		case tagPOSIXPathToMountPoint:
			v.POSIXPath = string(data)
		case tagRecursiveDiskImageAlias:
			nested, err := Decode(data)
			if err != nil {
				return fmt.Errorf("failed to decode disk image alias: %w", err)
			}
			v.DiskImageAlias = nested
		case tagUserHomeLengthPrefix:
			if len(data) != 2 {
				return fmt.Errorf("%w: user home prefix tag of %d bytes", types.ErrFormat, len(data))
			}
			n := int16(binary.BigEndian.Uint16(data))
			t.UserHomePrefixLen = &n
		default:
			a.Unrecognised = append(a.Unrecognised, UnrecognisedTag{Tag: tag, Data: data})
		}

		if length%2 != 0 {
			if err := r.Skip(1); err != nil {
				return err
			}
		}
	}
}
