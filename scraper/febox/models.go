package febox

import (
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
)

type ContentType int

const (
	MovieType ContentType = 1
	TVType    ContentType = 2
)

func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "movie":
		return MovieType, nil
	case "tv", "series", "show":
		return TVType, nil
	}
	return 0, errs.Invalid("type", "must be movie or tv")
}

func (t ContentType) String() string {
	if t == TVType {
		return "tv"
	}
	return "movie"
}

// ShareEntry is a row of a share page: a file for movies, a season folder for series.
type ShareEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ShareFile struct {
	Fid           int64  `json:"fid"`
	FileName      string `json:"file_name"`
	FileSize      string `json:"file_size"`
	Ext           string `json:"ext"`
	Thumb         string `json:"thumb"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	IsDir         int    `json:"is_dir"`
}

type shareListResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		FileList []ShareFile `json:"file_list"`
	} `json:"data"`
}

type FileInfo struct {
	Fid       int64  `json:"fid"`
	Size      string `json:"size"`
	Filename  string `json:"file_name"`
	Thumbnail string `json:"thumb_big"`
}

type fileInfoResponse struct {
	Data struct {
		File FileInfo `json:"file"`
	} `json:"data"`
}

type VideoQuality struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Size    string `json:"size"`
}

// EpisodeInfo is what a release file name says about itself.
type EpisodeInfo struct {
	Season  int
	Episode int
	Quality string
	Codec   string
}
