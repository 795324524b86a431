package config

const SERVER_YML = `
beacon:
  cron:
    timeZone: "America/Toronto"
  listener:
    port: 3000
  escalation:
    sweepSchedule: "*/1 * * * *"

sqlite:
  passPhrase: passphrase

smtp:
  host: "localhost"
  port: 1025
  username: ""
  password: ""
  from: "alerts@beacon.dev"

google:
  storage:
    bucket: "beacon"
    prefix: "beacon-dev"
    sqliteBackupSchedule: "*/30 * * * *"
    enableSqliteBackupAndSync: false
  applicationCredentials:
`
