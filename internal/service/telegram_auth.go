package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxInitDataAge is how old a Telegram auth_date may be before the init
// data is considered stale.
const maxInitDataAge = time.Hour

// ValidateTelegramInitData verifies Telegram WebApp init_data HMAC and
// rejects stale auth_date values to mitigate replay.
func ValidateTelegramInitData(initData, botToken string) (url.Values, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, false
	}
	values.Del("hash")

	var dataCheck []string
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)
	dataString := strings.Join(dataCheck, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(dataString))
	calculated := mac.Sum(nil)

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(calculated, provided) {
		return nil, false
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, false
	}

	now := time.Now().Unix()
	// allow a little clock skew forward, reject anything stale
	if now-authDate > int64(maxInitDataAge.Seconds()) || authDate-now > 300 {
		return nil, false
	}

	return values, true
}
