package sqlrepo

// Every statement uses ? placeholders and types both MySQL and SQLite accept.

const propertyCols = `id, address, map_link, city, property_type, price, distribution_areas, lat, lng, geo_key`

const getPropertySQL = `SELECT ` + propertyCols + ` FROM properties WHERE id = ?`

const listPropertiesSQL = `SELECT ` + propertyCols + ` FROM properties ORDER BY id`

const saveAreasSQL = `
UPDATE properties
SET distribution_areas = ?,
    updated_at         = CURRENT_TIMESTAMP
WHERE id = ?`

const saveAreasAndCoordSQL = `
UPDATE properties
SET distribution_areas = ?,
    lat                = ?,
    lng                = ?,
    geo_key            = ?,
    updated_at         = CURRENT_TIMESTAMP
WHERE id = ?`

const listBuyersSQL = `
SELECT id, email, phone, desired_areas, desired_property_type,
       price_range_land, price_range_house, price_range_condo,
       distribution, status, broker_inquiry
FROM buyers
ORDER BY id`

// REPLACE INTO is understood by both engines.
const replacePropertySQL = `
REPLACE INTO properties
  (` + propertyCols + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const replaceBuyerSQL = `
REPLACE INTO buyers
  (id, email, phone, desired_areas, desired_property_type,
   price_range_land, price_range_house, price_range_condo,
   distribution, status, broker_inquiry)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

var schemaSQL = []string{`
CREATE TABLE IF NOT EXISTS properties (
  id                 VARCHAR(64)   NOT NULL PRIMARY KEY,
  address            VARCHAR(512)  NOT NULL DEFAULT '',
  map_link           VARCHAR(1024) NOT NULL DEFAULT '',
  city               VARCHAR(128)  NOT NULL DEFAULT '',
  property_type      VARCHAR(32)   NOT NULL DEFAULT '',
  price              BIGINT        NOT NULL DEFAULT 0,
  distribution_areas VARCHAR(255)  NOT NULL DEFAULT '',
  lat                DOUBLE        NULL,
  lng                DOUBLE        NULL,
  geo_key            VARCHAR(1600) NOT NULL DEFAULT '',
  updated_at         TIMESTAMP     NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, `
CREATE TABLE IF NOT EXISTS buyers (
  id                    VARCHAR(64)  NOT NULL PRIMARY KEY,
  email                 VARCHAR(512) NOT NULL DEFAULT '',
  phone                 VARCHAR(512) NOT NULL DEFAULT '',
  desired_areas         VARCHAR(255) NOT NULL DEFAULT '',
  desired_property_type VARCHAR(64)  NOT NULL DEFAULT '',
  price_range_land      VARCHAR(64)  NOT NULL DEFAULT '',
  price_range_house     VARCHAR(64)  NOT NULL DEFAULT '',
  price_range_condo     VARCHAR(64)  NOT NULL DEFAULT '',
  distribution          VARCHAR(32)  NOT NULL DEFAULT '',
  status                VARCHAR(32)  NOT NULL DEFAULT '',
  broker_inquiry        BOOLEAN      NOT NULL DEFAULT FALSE
)`}
