package service

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
)

var (
	ErrSiteNotFound     = errors.New("site not found")
	ErrSiteInvalidInput = errors.New("invalid site input")
)

// SiteInput describes a hostname bound to a root page.
type SiteInput struct {
	Hostname      string
	Port          int
	SiteName      string
	RootPageID    uint
	IsDefaultSite bool
}

// SiteService maps request hosts to page tree roots.
type SiteService struct {
	db *gorm.DB
}

// NewSiteService creates a SiteService instance.
func NewSiteService(gdb *gorm.DB) *SiteService {
	return &SiteService{db: gdb}
}

// List returns every site with its root page.
func (s *SiteService) List() ([]db.Site, error) {
	var sites []db.Site
	if err := s.db.Preload("RootPage").Order("hostname asc").Order("port asc").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

// Get fetches a site by id.
func (s *SiteService) Get(id uint) (*db.Site, error) {
	var site db.Site
	if err := s.db.Preload("RootPage").First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("get site: %w", err)
	}
	return &site, nil
}

// FindForRequest picks the site for a Host header: exact host and port,
// then host alone, then the default site.
func (s *SiteService) FindForRequest(hostHeader string) (*db.Site, error) {
	host, port := splitHostPort(hostHeader)

	var site db.Site
	if host != "" {
		if port != 0 {
			err := s.db.Preload("RootPage").Where("hostname = ? AND port = ?", host, port).First(&site).Error
			if err == nil {
				return &site, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("find site: %w", err)
			}
		}
		var matches []db.Site
		if err := s.db.Preload("RootPage").Where("hostname = ?", host).Order("id asc").Find(&matches).Error; err != nil {
			return nil, fmt.Errorf("find site: %w", err)
		}
		if len(matches) == 1 {
			return &matches[0], nil
		}
	}

	err := s.db.Preload("RootPage").Where("is_default_site = ?", true).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("find default site: %w", err)
	}
	return &site, nil
}

// Save creates or updates a site. Marking a site default clears the flag on the others.
func (s *SiteService) Save(id uint, input SiteInput) (*db.Site, error) {
	hostname := strings.ToLower(strings.TrimSpace(input.Hostname))
	if hostname == "" || input.RootPageID == 0 {
		return nil, fmt.Errorf("%w: hostname and root page are required", ErrSiteInvalidInput)
	}
	port := input.Port
	if port == 0 {
		port = 80
	}

	var site db.Site
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if id != 0 {
			if err := tx.First(&site, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSiteNotFound
				}
				return err
			}
		}

		var root db.Page
		if err := tx.First(&root, input.RootPageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPageNotFound
			}
			return err
		}

		if input.IsDefaultSite {
			if err := tx.Model(&db.Site{}).Where("is_default_site = ? AND id <> ?", true, site.ID).
				Update("is_default_site", false).Error; err != nil {
				return err
			}
		}

		site.Hostname = hostname
		site.Port = port
		site.SiteName = strings.TrimSpace(input.SiteName)
		site.RootPageID = root.ID
		site.IsDefaultSite = input.IsDefaultSite
		return tx.Omit("RootPage").Save(&site).Error
	})
	if err != nil {
		if errors.Is(err, ErrSiteNotFound) || errors.Is(err, ErrPageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("save site: %w", err)
	}
	return s.Get(site.ID)
}

func splitHostPort(hostHeader string) (string, int) {
	hostHeader = strings.ToLower(strings.TrimSpace(hostHeader))
	if hostHeader == "" {
		return "", 0
	}
	host, rawPort, err := net.SplitHostPort(hostHeader)
	if err != nil {
		return strings.Trim(hostHeader, "[]"), 0
	}
	port, _ := strconv.Atoi(rawPort)
	return host, port
}
