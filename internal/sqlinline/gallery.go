package sqlinline

const QInsertGalleryRecord = `--sql 8c4f3b1a-52de-4f0e-9c7a-6d2b91e04a37
insert into gallery_records(
  id,
  user_id,
  prompt,
  generated_image_url,
  original_image_url,
  created_at
) values ($1::uuid, $2, $3, $4, $5, now())
returning created_at;
`

const QListGalleryRecords = `--sql 2e9d70cf-8a41-4b6b-b3fd-5c0a87d219e4
select
  id,
  prompt,
  generated_image_url,
  original_image_url,
  created_at
from gallery_records
where user_id = $1
order by created_at desc;
`
