package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "service":
		return serviceTemplate, nil
	case "profile":
		return profileTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serviceTemplate = `addr = ":8000"
cors_origins = ["http://localhost:5173"]
max_upload_mb = 50
decode_timeout = "30s"
decode_concurrency = 4
cache_entries = 256
scratch_dir = ""
profile = ""
api_token = ""
tls_cert = ""
tls_key = ""

[decoders]
wsq = "dwsq"
jpeg2000 = "opj_decompress"
`

const profileTemplate = `name = "FAUF"
description = "FBI Applicant Fingerprint (ATF eForm)"
required_demographics = ["name", "dob", "sex", "race", "height", "weight", "eyes", "hair"]

[[fingerprint_options]]
name = "Complete FD-258 (Rolled + Slaps)"
description = "All 10 rolled prints plus 3 flat impressions"
positions = [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 13, 14, 15]

[[fingerprint_options]]
name = "Rolled Prints Only"
description = "All 10 individual rolled fingerprints"
positions = [1, 2, 3, 4, 5, 6, 7, 8, 9, 10]

[[fingerprint_options]]
name = "Flat/Slap Impressions Only"
description = "Plain impressions (4-finger slaps + thumbs)"
positions = [13, 14, 15]
`
