package bookmark

// Standard TOC keys written by CFURL
const (
	KeyURL              IntKey = 0x1003 // URL
	KeyPath             IntKey = 0x1004 // array of path components
	KeyCNIDPath         IntKey = 0x1005 // array of catalog node IDs
	KeyFileProperties   IntKey = 0x1010 // resource flags, flags asked for, 8 zero bytes
	KeyFileName         IntKey = 0x1020
	KeyFileID           IntKey = 0x1030
	KeyFileCreationDate IntKey = 0x1040

	KeyTOCPath            IntKey = 0x2000 // (TOC id, ?) pairs
	KeyVolumePath         IntKey = 0x2002
	KeyVolumeURL          IntKey = 0x2005
	KeyVolumeName         IntKey = 0x2010
	KeyVolumeUUID         IntKey = 0x2011
	KeyVolumeSize         IntKey = 0x2012
	KeyVolumeCreationDate IntKey = 0x2013
	KeyVolumeProperties   IntKey = 0x2020 // volume flags, flags asked for, 8 zero bytes
	KeyVolumeIsRoot       IntKey = 0x2030
	KeyVolumeBookmark     IntKey = 0x2040 // TOC id of an embedded disk image bookmark
	KeyVolumeMountPoint   IntKey = 0x2050

	KeyContainingFolder IntKey = 0xC001 // index of the containing folder in KeyPath
	KeyUserName         IntKey = 0xC011
	KeyUID              IntKey = 0xC012

	KeyWasFileReference IntKey = 0xD001
	KeyCreationOptions  IntKey = 0xD010

	// KeyURLLengths holds the number of path components contributed by each
	// URL when the bookmarked URL was relative.
	KeyURLLengths IntKey = 0xE003

	KeyDisplayName     IntKey = 0xF017
	KeyIconData        IntKey = 0xF020
	KeyIconRef         IntKey = 0xF021
	KeyTypeBindingData IntKey = 0xF022
	KeyCreationTime    IntKey = 0xF030
	KeySandboxRw       IntKey = 0xF080
	KeySandboxRo       IntKey = 0xF081
	KeyAliasData       IntKey = 0xFE00
)

var keyNames = map[IntKey]string{
	KeyURL:                "URL",
	KeyPath:               "Path",
	KeyCNIDPath:           "CNIDPath",
	KeyFileProperties:     "FileProperties",
	KeyFileName:           "FileName",
	KeyFileID:             "FileID",
	KeyFileCreationDate:   "FileCreationDate",
	KeyTOCPath:            "TOCPath",
	KeyVolumePath:         "VolumePath",
	KeyVolumeURL:          "VolumeURL",
	KeyVolumeName:         "VolumeName",
	KeyVolumeUUID:         "VolumeUUID",
	KeyVolumeSize:         "VolumeSize",
	KeyVolumeCreationDate: "VolumeCreationDate",
	KeyVolumeProperties:   "VolumeProperties",
	KeyVolumeIsRoot:       "VolumeIsRoot",
	KeyVolumeBookmark:     "VolumeBookmark",
	KeyVolumeMountPoint:   "VolumeMountPoint",
	KeyContainingFolder:   "ContainingFolder",
	KeyUserName:           "UserName",
	KeyUID:                "UID",
	KeyWasFileReference:   "WasFileReference",
	KeyCreationOptions:    "CreationOptions",
	KeyURLLengths:         "URLLengths",
	KeyDisplayName:        "DisplayName",
	KeyIconData:           "IconData",
	KeyIconRef:            "IconRef",
	KeyTypeBindingData:    "TypeBindingData",
	KeyCreationTime:       "CreationTime",
	KeySandboxRw:          "SandboxRw",
	KeySandboxRo:          "SandboxRo",
	KeyAliasData:          "AliasData",
}

// KeyName returns a readable name for a TOC key
func KeyName(key TocKey) string {
	if k, ok := key.(IntKey); ok {
		if name, ok := keyNames[k]; ok {
			return name
		}
	}
	return key.String()
}
